package services

import (
	"context"
	"fmt"
	"strings"

	"gstbill/internal/common"
	"gstbill/internal/models"
	"gstbill/internal/repositories"

	"github.com/google/uuid"
)

type CustomerServiceInterface interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	ListCustomers(ctx context.Context, status string, limit, offset int) ([]*models.Customer, error)
}

type customerService struct {
	customerRepo repositories.CustomerRepository
}

func NewCustomerService(customerRepo repositories.CustomerRepository) CustomerServiceInterface {
	return &customerService{customerRepo: customerRepo}
}

func (s *customerService) validate(customer *models.Customer) error {
	if strings.TrimSpace(customer.CompanyName) == "" {
		return common.ValidationError("company_name is required")
	}
	if strings.TrimSpace(customer.State) == "" {
		return common.ValidationError("state is required")
	}
	if customer.GSTIN != nil {
		if err := common.ValidateGSTIN(*customer.GSTIN, "gstin"); err != nil {
			return fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
		}
	}
	return nil
}

func (s *customerService) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := s.validate(customer); err != nil {
		return err
	}
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if customer.Status == "" {
		customer.Status = "active"
	}
	if customer.Country == "" {
		customer.Country = "India"
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (s *customerService) GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNoRows(err) {
			return nil, common.NotFoundError("customer")
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := s.validate(customer); err != nil {
		return err
	}
	if _, err := s.GetCustomerByID(ctx, customer.ID); err != nil {
		return err
	}
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetCustomerByID(ctx, id); err != nil {
		return err
	}
	if err := s.customerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

func (s *customerService) ListCustomers(ctx context.Context, status string, limit, offset int) ([]*models.Customer, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	customers, err := s.customerRepo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}
