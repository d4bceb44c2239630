package services

import (
	"context"
	"testing"
	"time"

	"gstbill/internal/common"
	"gstbill/internal/config"
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

type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) WithTx(tx pgx.Tx) repositories.CouponRepository {
	return m
}

func (m *MockCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *MockCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *MockCouponRepository) GetActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCouponRepository) List(ctx context.Context, filter *models.CouponFilter) ([]*models.Coupon, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Coupon), args.Int(1), args.Error(2)
}

func (m *MockCouponRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCouponRepository) Redeem(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCouponRepository) InsertUsage(ctx context.Context, usage *models.CouponUsage) error {
	args := m.Called(ctx, usage)
	return args.Error(0)
}

func (m *MockCouponRepository) Stats(ctx context.Context, id uuid.UUID) (int, decimal.Decimal, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Get(1).(decimal.Decimal), args.Error(2)
}

type CouponServiceTestSuite struct {
	suite.Suite
	mockCouponRepo *MockCouponRepository
	service        CouponServiceInterface
}

func (suite *CouponServiceTestSuite) SetupTest() {
	suite.mockCouponRepo = &MockCouponRepository{}
	cfg := &config.Config{CurrencySymbol: "₹"}
	suite.service = NewCouponService(nil, suite.mockCouponRepo, nil, cfg)
}

func (suite *CouponServiceTestSuite) TearDownTest() {
	suite.mockCouponRepo.AssertExpectations(suite.T())
}

func TestCouponServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CouponServiceTestSuite))
}

func activeCoupon(code string) *models.Coupon {
	return &models.Coupon{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		Status:        models.CouponStatusActive,
	}
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_Success() {
	coupon := activeCoupon("SAVE10")
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "SAVE10").Return(coupon, nil).Once()

	got, err := suite.service.ValidateCoupon(context.Background(), "SAVE10", nil, decimal.NewFromInt(500), nil)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), coupon, got)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_UnknownCode() {
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "NOPE").Return(nil, pgx.ErrNoRows).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "NOPE", nil, decimal.NewFromInt(500), nil)

	assert.ErrorIs(suite.T(), err, common.ErrInvalidCode)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_Expired() {
	coupon := activeCoupon("OLD")
	past := time.Now().Add(-24 * time.Hour)
	coupon.EndDate = &past
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "OLD").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "OLD", nil, decimal.NewFromInt(500), nil)

	assert.ErrorIs(suite.T(), err, common.ErrCouponExpired)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_NotYetActive() {
	coupon := activeCoupon("SOON")
	future := time.Now().Add(24 * time.Hour)
	coupon.StartDate = &future
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "SOON").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "SOON", nil, decimal.NewFromInt(500), nil)

	assert.ErrorIs(suite.T(), err, common.ErrCouponNotYetActive)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_UsageLimitExhausted() {
	coupon := activeCoupon("FULL")
	limit := 5
	coupon.UsageLimit = &limit
	coupon.UsedCount = 5
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "FULL").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "FULL", nil, decimal.NewFromInt(500), nil)

	assert.ErrorIs(suite.T(), err, common.ErrUsageLimitExceeded)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_BelowMinimumAmount() {
	coupon := activeCoupon("BIG")
	coupon.MinimumAmount = decimal.NewFromInt(1000)
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "BIG").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "BIG", nil, decimal.NewFromInt(500), nil)

	assert.ErrorIs(suite.T(), err, common.ErrMinimumNotMet)
	assert.Contains(suite.T(), err.Error(), "₹1000.00")
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_ExpiryCheckedBeforeMinimum() {
	coupon := activeCoupon("BOTH")
	past := time.Now().Add(-time.Hour)
	coupon.EndDate = &past
	coupon.MinimumAmount = decimal.NewFromInt(1000)
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "BOTH").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "BOTH", nil, decimal.NewFromInt(1), nil)

	assert.ErrorIs(suite.T(), err, common.ErrCouponExpired)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_CustomerNotOnAllowList() {
	coupon := activeCoupon("VIP")
	coupon.ApplicableCustomers = []uuid.UUID{uuid.New()}
	outsider := uuid.New()
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "VIP").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "VIP", &outsider, decimal.NewFromInt(500), nil)

	assert.ErrorIs(suite.T(), err, common.ErrCustomerNotEligible)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_CustomerUnknownSkipsAllowList() {
	coupon := activeCoupon("VIP")
	coupon.ApplicableCustomers = []uuid.UUID{uuid.New()}
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "VIP").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "VIP", nil, decimal.NewFromInt(500), nil)

	assert.NoError(suite.T(), err)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_NoEligibleProduct() {
	coupon := activeCoupon("PROD")
	coupon.ApplicableProducts = []uuid.UUID{uuid.New()}
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "PROD").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "PROD", nil, decimal.NewFromInt(500), []uuid.UUID{uuid.New()})

	assert.ErrorIs(suite.T(), err, common.ErrProductNotEligible)
}

func (suite *CouponServiceTestSuite) TestValidateCoupon_OneEligibleProductSuffices() {
	eligible := uuid.New()
	coupon := activeCoupon("PROD")
	coupon.ApplicableProducts = []uuid.UUID{eligible}
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "PROD").Return(coupon, nil).Once()

	_, err := suite.service.ValidateCoupon(context.Background(), "PROD", nil, decimal.NewFromInt(500), []uuid.UUID{uuid.New(), eligible})

	assert.NoError(suite.T(), err)
}

func TestComputeDiscount(t *testing.T) {
	hundred := decimal.NewFromInt(100)

	t.Run("percentage", func(t *testing.T) {
		coupon := &models.Coupon{DiscountType: models.DiscountTypePercentage, DiscountValue: decimal.NewFromInt(10)}
		got := ComputeDiscount(coupon, decimal.NewFromInt(500))
		assert.True(t, got.Equal(decimal.NewFromInt(50)), "got %s", got)
	})

	t.Run("percentage capped by maximum discount", func(t *testing.T) {
		cap := decimal.NewFromInt(30)
		coupon := &models.Coupon{DiscountType: models.DiscountTypePercentage, DiscountValue: decimal.NewFromInt(10), MaximumDiscount: &cap}
		got := ComputeDiscount(coupon, decimal.NewFromInt(500))
		assert.True(t, got.Equal(cap), "got %s", got)
	})

	t.Run("fixed", func(t *testing.T) {
		coupon := &models.Coupon{DiscountType: models.DiscountTypeFixed, DiscountValue: decimal.NewFromInt(40)}
		got := ComputeDiscount(coupon, decimal.NewFromInt(500))
		assert.True(t, got.Equal(decimal.NewFromInt(40)), "got %s", got)
	})

	t.Run("fixed never exceeds order total", func(t *testing.T) {
		coupon := &models.Coupon{DiscountType: models.DiscountTypeFixed, DiscountValue: decimal.NewFromInt(200)}
		got := ComputeDiscount(coupon, hundred)
		assert.True(t, got.Equal(hundred), "got %s", got)
	})

	t.Run("free shipping", func(t *testing.T) {
		coupon := &models.Coupon{DiscountType: models.DiscountTypeFreeShipping}
		got := ComputeDiscount(coupon, hundred)
		assert.True(t, got.IsZero(), "got %s", got)
	})
}

func (suite *CouponServiceTestSuite) TestApplyCoupon_ReturnsFinalAmount() {
	coupon := activeCoupon("SAVE10")
	suite.mockCouponRepo.On("GetActiveByCode", mock.Anything, "SAVE10").Return(coupon, nil).Once()

	result, err := suite.service.ApplyCoupon(context.Background(), "SAVE10", decimal.NewFromInt(500), nil, nil)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.DiscountAmount.Equal(decimal.NewFromInt(50)))
	assert.True(suite.T(), result.FinalAmount.Equal(decimal.NewFromInt(450)))
}

func (suite *CouponServiceTestSuite) TestCreateCoupon_NormalizesCode() {
	coupon := &models.Coupon{
		Code:          "  save10 ",
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
	}
	suite.mockCouponRepo.On("Create", mock.Anything, coupon).Return(nil).Once()

	err := suite.service.CreateCoupon(context.Background(), coupon)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "SAVE10", coupon.Code)
	assert.Equal(suite.T(), models.CouponStatusActive, coupon.Status)
	assert.NotEqual(suite.T(), uuid.Nil, coupon.ID)
}

func (suite *CouponServiceTestSuite) TestCreateCoupon_RejectsBadDiscountType() {
	coupon := &models.Coupon{Code: "X", DiscountType: "bogus", DiscountValue: decimal.NewFromInt(10)}

	err := suite.service.CreateCoupon(context.Background(), coupon)

	assert.ErrorIs(suite.T(), err, common.ErrValidation)
}

func (suite *CouponServiceTestSuite) TestBulkGenerateCoupons_ReportsOnlyCreated() {
	calls := 0
	suite.mockCouponRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Coupon")).
		Return(nil).
		Run(func(args mock.Arguments) {
			calls++
			coupon := args.Get(1).(*models.Coupon)
			assert.Regexp(suite.T(), `^PROMO-[A-Z0-9]{8}$`, coupon.Code)
			assert.NotNil(suite.T(), coupon.UsageLimit)
			assert.Equal(suite.T(), 1, *coupon.UsageLimit)
			assert.NotNil(suite.T(), coupon.EndDate)
		}).
		Times(3)

	result, err := suite.service.BulkGenerateCoupons(context.Background(), &models.BulkCouponSpec{
		Count:         3,
		Prefix:        "promo",
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(50),
		ExpiryDays:    7,
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, calls)
	assert.Equal(suite.T(), 3, result.GeneratedCount)
	assert.Len(suite.T(), result.Coupons, 3)
}

func (suite *CouponServiceTestSuite) TestListCoupons_DefaultsPagination() {
	filter := &models.CouponFilter{}
	suite.mockCouponRepo.On("List", mock.Anything, filter).Return([]*models.Coupon{}, 45, nil).Once()

	list, err := suite.service.ListCoupons(context.Background(), filter)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, filter.Page)
	assert.Equal(suite.T(), 20, filter.PerPage)
	assert.Equal(suite.T(), 3, list.Pages)
}

func couponRows(c *models.Coupon) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "code", "description", "discount_type", "discount_value",
		"minimum_amount", "maximum_discount", "usage_limit", "used_count",
		"start_date", "end_date", "applicable_products", "applicable_customers",
		"status", "created_by", "created_at", "updated_at",
	}).AddRow(
		c.ID, c.Code, c.Description, c.DiscountType, c.DiscountValue,
		c.MinimumAmount, c.MaximumDiscount, c.UsageLimit, c.UsedCount,
		c.StartDate, c.EndDate, []byte(nil), []byte(nil),
		c.Status, c.CreatedBy, time.Now(), time.Now(),
	)
}

// Redemption against the real repository, exercising the conditional
// used_count update inside a transaction.
func TestUseCoupon_CommitsIncrementAndUsageRow(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mockPool.Close()

	couponID := uuid.New()
	invoiceID := uuid.New()

	mockPool.ExpectBegin()
	mockPool.ExpectExec("UPDATE coupons").
		WithArgs(couponID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectExec("INSERT INTO coupon_usage").
		WithArgs(pgxmock.AnyArg(), couponID, &invoiceID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	service := NewCouponService(mockPool, repositories.NewCouponRepo(mockPool), nil, &config.Config{CurrencySymbol: "₹"})

	err = service.UseCoupon(context.Background(), couponID, &invoiceID)

	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUseCoupon_ExhaustedLimitRollsBack(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mockPool.Close()

	couponID := uuid.New()
	limit := 1
	exhausted := &models.Coupon{ID: couponID, Code: "ONCE", UsageLimit: &limit, UsedCount: 1, Status: models.CouponStatusActive}

	mockPool.ExpectBegin()
	mockPool.ExpectExec("UPDATE coupons").
		WithArgs(couponID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mockPool.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs(couponID).
		WillReturnRows(couponRows(exhausted))
	mockPool.ExpectRollback()

	service := NewCouponService(mockPool, repositories.NewCouponRepo(mockPool), nil, &config.Config{CurrencySymbol: "₹"})

	err = service.UseCoupon(context.Background(), couponID, nil)

	assert.ErrorIs(t, err, common.ErrUsageLimitExceeded)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
