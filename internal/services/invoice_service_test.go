package services

import (
	"context"
	"testing"
	"time"

	"gstbill/internal/common"
	"gstbill/internal/config"
	"gstbill/internal/events"
	"gstbill/internal/gst"
	"gstbill/internal/models"
	"gstbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) WithTx(tx pgx.Tx) repositories.InvoiceRepository {
	return m
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceRepository) List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Invoice), args.Int(1), args.Error(2)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockInvoiceRepository) UpdatePaidAmount(ctx context.Context, id uuid.UUID, paidAmount decimal.Decimal, status string) error {
	args := m.Called(ctx, id, paidAmount, status)
	return args.Error(0)
}

func (m *MockInvoiceRepository) InsertItems(ctx context.Context, invoiceID uuid.UUID, items []*models.InvoiceItem) error {
	args := m.Called(ctx, invoiceID, items)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceItem, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]*models.InvoiceItem), args.Error(1)
}

func (m *MockInvoiceRepository) DeleteItems(ctx context.Context, invoiceID uuid.UUID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

func (m *MockInvoiceRepository) NextInvoiceNumber(ctx context.Context, prefix string, startNumber int) (string, error) {
	args := m.Called(ctx, prefix, startNumber)
	return args.String(0), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) WithTx(tx pgx.Tx) repositories.CustomerRepository {
	return m
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCustomerRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.Customer, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Customer), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) WithTx(tx pgx.Tx) repositories.ProductRepository {
	return m
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) ListBelowMinStock(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockProductRepository) TryAdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	args := m.Called(ctx, id, delta)
	return args.Bool(0), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) WithTx(tx pgx.Tx) repositories.PaymentRepository {
	return m
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) DeleteByInvoiceID(ctx context.Context, invoiceID uuid.UUID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

func (m *MockPaymentRepository) SumByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type InvoiceServiceTestSuite struct {
	suite.Suite
	mockPool        pgxmock.PgxPoolIface
	mockInvoiceRepo *MockInvoiceRepository
	mockCustomerRepo *MockCustomerRepository
	mockProductRepo *MockProductRepository
	mockPaymentRepo *MockPaymentRepository
	cfg             *config.Config
	service         InvoiceServiceInterface
}

func (suite *InvoiceServiceTestSuite) SetupTest() {
	pool, err := pgxmock.NewPool()
	suite.Require().NoError(err)
	suite.mockPool = pool

	suite.mockInvoiceRepo = &MockInvoiceRepository{}
	suite.mockCustomerRepo = &MockCustomerRepository{}
	suite.mockProductRepo = &MockProductRepository{}
	suite.mockPaymentRepo = &MockPaymentRepository{}
	suite.cfg = &config.Config{
		InvoicePrefix:      "INV-",
		InvoiceStartNumber: 1,
		DueDays:            30,
		AllowNegativeStock: true,
		CompanyState:       "Karnataka",
	}
	suite.service = NewInvoiceService(
		suite.mockPool,
		suite.mockInvoiceRepo,
		suite.mockCustomerRepo,
		suite.mockProductRepo,
		suite.mockPaymentRepo,
		gst.NewCalculator(suite.cfg.CompanyState),
		suite.cfg,
		events.NewPublisher(),
	)
}

func (suite *InvoiceServiceTestSuite) TearDownTest() {
	suite.mockPool.Close()
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
	suite.mockCustomerRepo.AssertExpectations(suite.T())
	suite.mockProductRepo.AssertExpectations(suite.T())
	suite.mockPaymentRepo.AssertExpectations(suite.T())
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}

func testItems(productID *uuid.UUID) []*models.InvoiceItem {
	return []*models.InvoiceItem{
		{
			ProductID:   productID,
			Description: "Widget",
			Quantity:    decimal.NewFromInt(2),
			Rate:        decimal.NewFromInt(100),
			TaxRate:     decimal.NewFromInt(18),
		},
		{
			Description: "Gadget",
			Quantity:    decimal.NewFromInt(1),
			Rate:        decimal.NewFromInt(50),
			TaxRate:     decimal.NewFromInt(18),
		},
	}
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_IntrastateSplitsTax() {
	customerID := uuid.New()
	productID := uuid.New()
	invoice := &models.Invoice{CustomerID: customerID, InvoiceDate: time.Now()}
	items := testItems(&productID)

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectCommit()
	suite.mockPool.ExpectRollback()

	suite.mockCustomerRepo.On("GetByID", mock.Anything, customerID).
		Return(&models.Customer{ID: customerID, State: "Karnataka"}, nil).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything, "INV-", 1).
		Return("INV-0042", nil).Once()
	suite.mockInvoiceRepo.On("Create", mock.Anything, invoice).Return(nil).Once()
	suite.mockInvoiceRepo.On("InsertItems", mock.Anything, mock.AnythingOfType("uuid.UUID"), items).Return(nil).Once()
	suite.mockProductRepo.On("AdjustStock", mock.Anything, productID, decimal.NewFromInt(-2)).Return(nil).Once()

	err := suite.service.CreateInvoice(context.Background(), invoice, items)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "INV-0042", invoice.InvoiceNumber)
	assert.Equal(suite.T(), models.InvoiceStatusDraft, invoice.Status)
	assert.True(suite.T(), invoice.Subtotal.Equal(decimal.NewFromInt(250)), "subtotal %s", invoice.Subtotal)
	assert.True(suite.T(), invoice.CGST.Equal(decimal.NewFromFloat(22.5)), "cgst %s", invoice.CGST)
	assert.True(suite.T(), invoice.SGST.Equal(decimal.NewFromFloat(22.5)), "sgst %s", invoice.SGST)
	assert.True(suite.T(), invoice.IGST.IsZero(), "igst %s", invoice.IGST)
	assert.True(suite.T(), invoice.TotalAmount.Equal(decimal.NewFromInt(295)), "total %s", invoice.TotalAmount)
	assert.NoError(suite.T(), suite.mockPool.ExpectationsWereMet())
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_InterstateUsesIGST() {
	customerID := uuid.New()
	invoice := &models.Invoice{CustomerID: customerID, InvoiceDate: time.Now()}
	items := testItems(nil)

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectCommit()
	suite.mockPool.ExpectRollback()

	suite.mockCustomerRepo.On("GetByID", mock.Anything, customerID).
		Return(&models.Customer{ID: customerID, State: "Maharashtra"}, nil).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything, "INV-", 1).
		Return("INV-0043", nil).Once()
	suite.mockInvoiceRepo.On("Create", mock.Anything, invoice).Return(nil).Once()
	suite.mockInvoiceRepo.On("InsertItems", mock.Anything, mock.AnythingOfType("uuid.UUID"), items).Return(nil).Once()

	err := suite.service.CreateInvoice(context.Background(), invoice, items)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), invoice.CGST.IsZero())
	assert.True(suite.T(), invoice.SGST.IsZero())
	assert.True(suite.T(), invoice.IGST.Equal(decimal.NewFromInt(45)), "igst %s", invoice.IGST)
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_CustomerMissing() {
	customerID := uuid.New()
	invoice := &models.Invoice{CustomerID: customerID, InvoiceDate: time.Now()}

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectRollback()

	suite.mockCustomerRepo.On("GetByID", mock.Anything, customerID).
		Return(nil, pgx.ErrNoRows).Once()

	err := suite.service.CreateInvoice(context.Background(), invoice, testItems(nil))

	assert.ErrorIs(suite.T(), err, common.ErrNotFound)
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_ValidationRejectsEmptyItems() {
	invoice := &models.Invoice{CustomerID: uuid.New()}

	err := suite.service.CreateInvoice(context.Background(), invoice, nil)

	assert.ErrorIs(suite.T(), err, common.ErrValidation)
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_StockGuardAborts() {
	suite.cfg.AllowNegativeStock = false

	customerID := uuid.New()
	productID := uuid.New()
	invoice := &models.Invoice{CustomerID: customerID, InvoiceDate: time.Now()}
	items := testItems(&productID)

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectRollback()

	suite.mockCustomerRepo.On("GetByID", mock.Anything, customerID).
		Return(&models.Customer{ID: customerID, State: "Karnataka"}, nil).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything, "INV-", 1).
		Return("INV-0044", nil).Once()
	suite.mockInvoiceRepo.On("Create", mock.Anything, invoice).Return(nil).Once()
	suite.mockInvoiceRepo.On("InsertItems", mock.Anything, mock.AnythingOfType("uuid.UUID"), items).Return(nil).Once()
	suite.mockProductRepo.On("TryAdjustStock", mock.Anything, productID, decimal.NewFromInt(-2)).
		Return(false, nil).Once()

	err := suite.service.CreateInvoice(context.Background(), invoice, items)

	assert.ErrorIs(suite.T(), err, common.ErrInsufficientStock)
	assert.NoError(suite.T(), suite.mockPool.ExpectationsWereMet())
}

func (suite *InvoiceServiceTestSuite) TestUpdateInvoice_RestoresOldStockFirst() {
	customerID := uuid.New()
	oldProductID := uuid.New()
	newProductID := uuid.New()
	invoiceID := uuid.New()

	invoice := &models.Invoice{ID: invoiceID, CustomerID: customerID, InvoiceDate: time.Now()}
	newItems := testItems(&newProductID)
	oldItems := []*models.InvoiceItem{
		{ProductID: &oldProductID, Description: "Old widget", Quantity: decimal.NewFromInt(5), Rate: decimal.NewFromInt(10)},
	}

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectCommit()
	suite.mockPool.ExpectRollback()

	suite.mockInvoiceRepo.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{ID: invoiceID, InvoiceNumber: "INV-0010", Status: models.InvoiceStatusDraft}, nil).Once()
	suite.mockCustomerRepo.On("GetByID", mock.Anything, customerID).
		Return(&models.Customer{ID: customerID, State: "Karnataka"}, nil).Once()
	suite.mockInvoiceRepo.On("ListItems", mock.Anything, invoiceID).Return(oldItems, nil).Once()
	suite.mockProductRepo.On("AdjustStock", mock.Anything, oldProductID, decimal.NewFromInt(5)).Return(nil).Once()
	suite.mockInvoiceRepo.On("DeleteItems", mock.Anything, invoiceID).Return(nil).Once()
	suite.mockInvoiceRepo.On("Update", mock.Anything, invoice).Return(nil).Once()
	suite.mockInvoiceRepo.On("InsertItems", mock.Anything, invoiceID, newItems).Return(nil).Once()
	suite.mockProductRepo.On("AdjustStock", mock.Anything, newProductID, decimal.NewFromInt(-2)).Return(nil).Once()

	err := suite.service.UpdateInvoice(context.Background(), invoice, newItems)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "INV-0010", invoice.InvoiceNumber, "number survives edits")
}

func (suite *InvoiceServiceTestSuite) TestDeleteInvoice_RestoresStockAndPayments() {
	invoiceID := uuid.New()
	productID := uuid.New()
	items := []*models.InvoiceItem{
		{ProductID: &productID, Description: "Widget", Quantity: decimal.NewFromInt(3), Rate: decimal.NewFromInt(10)},
	}

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectCommit()
	suite.mockPool.ExpectRollback()

	suite.mockInvoiceRepo.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{ID: invoiceID}, nil).Once()
	suite.mockInvoiceRepo.On("ListItems", mock.Anything, invoiceID).Return(items, nil).Once()
	suite.mockProductRepo.On("AdjustStock", mock.Anything, productID, decimal.NewFromInt(3)).Return(nil).Once()
	suite.mockInvoiceRepo.On("DeleteItems", mock.Anything, invoiceID).Return(nil).Once()
	suite.mockPaymentRepo.On("DeleteByInvoiceID", mock.Anything, invoiceID).Return(nil).Once()
	suite.mockInvoiceRepo.On("Delete", mock.Anything, invoiceID).Return(nil).Once()

	err := suite.service.DeleteInvoice(context.Background(), invoiceID)

	assert.NoError(suite.T(), err)
}

func (suite *InvoiceServiceTestSuite) TestUpdateInvoiceStatus_AllowsDraftToPending() {
	invoiceID := uuid.New()
	suite.mockInvoiceRepo.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{ID: invoiceID, Status: models.InvoiceStatusDraft}, nil).Once()
	suite.mockInvoiceRepo.On("UpdateStatus", mock.Anything, invoiceID, models.InvoiceStatusPending).
		Return(nil).Once()

	err := suite.service.UpdateInvoiceStatus(context.Background(), invoiceID, models.InvoiceStatusPending)

	assert.NoError(suite.T(), err)
}

func (suite *InvoiceServiceTestSuite) TestUpdateInvoiceStatus_RejectsCompletedToDraft() {
	invoiceID := uuid.New()
	suite.mockInvoiceRepo.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{ID: invoiceID, Status: models.InvoiceStatusCompleted}, nil).Once()

	err := suite.service.UpdateInvoiceStatus(context.Background(), invoiceID, models.InvoiceStatusDraft)

	assert.ErrorIs(suite.T(), err, common.ErrValidation)
}

func (suite *InvoiceServiceTestSuite) TestRecordPayment_FullCoverFlipsToPaid() {
	invoiceID := uuid.New()
	customerID := uuid.New()
	payment := &models.Payment{InvoiceID: invoiceID, Amount: decimal.NewFromInt(300), PaymentMethod: "upi"}

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectCommit()
	suite.mockPool.ExpectRollback()

	suite.mockInvoiceRepo.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{
			ID:          invoiceID,
			CustomerID:  customerID,
			Status:      models.InvoiceStatusPending,
			TotalAmount: decimal.NewFromInt(300),
			PaidAmount:  decimal.Zero,
		}, nil).Once()
	suite.mockPaymentRepo.On("Create", mock.Anything, payment).Return(nil).Once()
	suite.mockInvoiceRepo.On("UpdatePaidAmount", mock.Anything, invoiceID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(300)) }),
		models.InvoiceStatusPaid).Return(nil).Once()

	err := suite.service.RecordPayment(context.Background(), payment)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), customerID, payment.CustomerID)
	assert.Equal(suite.T(), "completed", payment.Status)
}

func (suite *InvoiceServiceTestSuite) TestRecordPayment_PartialKeepsStatus() {
	invoiceID := uuid.New()
	payment := &models.Payment{InvoiceID: invoiceID, Amount: decimal.NewFromInt(100), PaymentMethod: "cash"}

	suite.mockPool.ExpectBegin()
	suite.mockPool.ExpectCommit()
	suite.mockPool.ExpectRollback()

	suite.mockInvoiceRepo.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{
			ID:          invoiceID,
			Status:      models.InvoiceStatusPending,
			TotalAmount: decimal.NewFromInt(300),
			PaidAmount:  decimal.Zero,
		}, nil).Once()
	suite.mockPaymentRepo.On("Create", mock.Anything, payment).Return(nil).Once()
	suite.mockInvoiceRepo.On("UpdatePaidAmount", mock.Anything, invoiceID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(100)) }),
		models.InvoiceStatusPending).Return(nil).Once()

	err := suite.service.RecordPayment(context.Background(), payment)

	assert.NoError(suite.T(), err)
}

func (suite *InvoiceServiceTestSuite) TestRecordPayment_RejectsNonPositiveAmount() {
	payment := &models.Payment{InvoiceID: uuid.New(), Amount: decimal.Zero}

	err := suite.service.RecordPayment(context.Background(), payment)

	assert.ErrorIs(suite.T(), err, common.ErrValidation)
}

func (suite *InvoiceServiceTestSuite) TestListInvoices_ClampsPerPage() {
	filter := &models.InvoiceFilter{Page: 0, PerPage: 1000}
	suite.mockInvoiceRepo.On("List", mock.Anything, filter).Return([]*models.Invoice{}, 0, nil).Once()

	list, err := suite.service.ListInvoices(context.Background(), filter)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, filter.Page)
	assert.Equal(suite.T(), 20, filter.PerPage)
	assert.Equal(suite.T(), 0, list.Pages)
}
