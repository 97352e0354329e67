package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/domain"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/dto"
	"github.com/stemtide/stemtide_backend/internal/handlers"
	"github.com/stemtide/stemtide_backend/internal/middleware"
)

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal, description, reference string) (*domain.CreditTransaction, error) {
	args := m.Called(ctx, userID, amount, description, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditTransaction), args.Error(1)
}

func (m *MockLedgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal, description string, jobID *string) (*domain.CreditTransaction, error) {
	args := m.Called(ctx, userID, amount, description, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditTransaction), args.Error(1)
}

func (m *MockLedgerService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.CreditTransaction, *string, error) {
	args := m.Called(ctx, userID, limit, nextToken)
	var txns []domain.CreditTransaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.CreditTransaction)
	}
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	return txns, next, args.Error(2)
}

// Ensure mock implements the interface
var _ portssvc.LedgerSvcFacade = (*MockLedgerService)(nil)

// --- Test Suite ---
type CreditsHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockLedgerService *MockLedgerService
	jwtSecret         string
	userID            string
}

// generateTestToken creates a JWT for the test user.
func (suite *CreditsHandlerTestSuite) generateTestToken() string {
	claims := jwt.RegisteredClaims{
		Subject:   suite.userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	suite.Require().NoError(err)
	return signed
}

func (suite *CreditsHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.userID = uuid.NewString()

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret))

	suite.mockLedgerService = new(MockLedgerService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterCreditsRoutes(v1, suite.mockLedgerService)
}

func (suite *CreditsHandlerTestSuite) doRequest(method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// --- Balance ---

func (suite *CreditsHandlerTestSuite) TestBalance_Success() {
	suite.mockLedgerService.On("Balance", mock.Anything, suite.userID).
		Return(decimal.RequireFromString("2.5"), nil).Once()

	w := suite.doRequest(http.MethodGet, "/api/v1/credits/balance", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.BalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("2.5", resp.Credits)
	suite.mockLedgerService.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestBalance_NoToken() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

// --- Purchase ---

func (suite *CreditsHandlerTestSuite) TestPurchase_Success() {
	amount := decimal.RequireFromString("10.0")
	txn := &domain.CreditTransaction{
		TransactionID: uuid.NewString(),
		UserID:        suite.userID,
		Amount:        amount,
		BalanceAfter:  decimal.RequireFromString("12.0"),
	}
	suite.mockLedgerService.On("Credit", mock.Anything, suite.userID, amount, mock.AnythingOfType("string"), "pay_abc").
		Return(txn, nil).Once()

	body, _ := json.Marshal(dto.PurchaseRequest{Amount: amount, PaymentReference: "pay_abc"})
	w := suite.doRequest(http.MethodPost, "/api/v1/credits/purchase", body)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.PurchaseResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("12", resp.Credits)
	suite.Equal("10", resp.AmountAdded)
	suite.mockLedgerService.AssertExpectations(suite.T())
}

func (suite *CreditsHandlerTestSuite) TestPurchase_InvalidAmount() {
	suite.mockLedgerService.On("Credit", mock.Anything, suite.userID, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("credit: %w", apperrors.ErrInvalidAmount)).Once()

	body, _ := json.Marshal(map[string]any{"amount": "-5", "payment_reference": "pay_x"})
	w := suite.doRequest(http.MethodPost, "/api/v1/credits/purchase", body)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *CreditsHandlerTestSuite) TestPurchase_MissingReference() {
	body, _ := json.Marshal(map[string]any{"amount": "5"})
	w := suite.doRequest(http.MethodPost, "/api/v1/credits/purchase", body)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockLedgerService.AssertNotCalled(suite.T(), "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- History ---

func (suite *CreditsHandlerTestSuite) TestHistory_Success() {
	next := "bmV4dA=="
	txns := []domain.CreditTransaction{
		{
			TransactionID: uuid.NewString(),
			UserID:        suite.userID,
			Amount:        decimal.RequireFromString("-1.0"),
			BalanceAfter:  decimal.RequireFromString("2.0"),
			Description:   "separation job: song.mp3",
			CreatedAt:     time.Now().UTC(),
		},
	}
	suite.mockLedgerService.On("History", mock.Anything, suite.userID, 20, (*string)(nil)).
		Return(txns, &next, nil).Once()

	w := suite.doRequest(http.MethodGet, "/api/v1/credits/history", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.HistoryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Transactions, 1)
	suite.Equal("-1", resp.Transactions[0].Amount)
	suite.Require().NotNil(resp.NextToken)
	suite.Equal(next, *resp.NextToken)
	suite.mockLedgerService.AssertExpectations(suite.T())
}

func TestCreditsHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CreditsHandlerTestSuite))
}
