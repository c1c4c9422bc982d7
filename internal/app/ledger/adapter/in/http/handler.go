package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
)

// Handler HTTP 入口，錯誤只在這層轉成 status code
type Handler struct {
	svc *usecase.TransferService
}

func NewHandler(svc *usecase.TransferService) *Handler {
	return &Handler{
		svc: svc,
	}
}

// CreateAccountRequest POST /v1/accounts 的 body
type CreateAccountRequest struct {
	AccountID string           `json:"accountId" binding:"required"`
	Balance   *decimal.Decimal `json:"balance" binding:"required"`
}

// AccountResponse balance 以 JSON number 輸出
type AccountResponse struct {
	AccountID string      `json:"accountId"`
	Balance   json.Number `json:"balance"`
}

type AccountsResponse struct {
	Accounts     []AccountResponse `json:"accounts"`
	TotalBalance json.Number       `json:"totalBalance"`
}

type TransferResponse struct {
	TransferID  string          `json:"transferId"`
	From        AccountResponse `json:"from"`
	To          AccountResponse `json:"to"`
	Amount      json.Number     `json:"amount"`
	CompletedAt time.Time       `json:"completedAt"`
}

// CreateAccount handles POST /v1/accounts
func (h *Handler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Balance.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "balance must not be negative"})
		return
	}

	account, err := h.svc.CreateAccount(c.Request.Context(), req.AccountID, *req.Balance)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toAccountResponse(account))
}

// GetAccount handles GET /v1/accounts/:accountId
func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.svc.GetAccount(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

// ListAccounts handles GET /v1/accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	accounts := h.svc.Accounts(ctx)

	resp := AccountsResponse{
		Accounts:     make([]AccountResponse, 0, len(accounts)),
		TotalBalance: json.Number(h.svc.TotalBalance(ctx).String()),
	}
	for _, account := range accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(account))
	}
	c.JSON(http.StatusOK, resp)
}

// Transfer handles POST /v1/accounts/transfer?fromAccountId=&toAccountId=&amount=
func (h *Handler) Transfer(c *gin.Context) {
	fromID, ok := c.GetQuery("fromAccountId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fromAccountId is required"})
		return
	}
	toID, ok := c.GetQuery("toAccountId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "toAccountId is required"})
		return
	}
	rawAmount, ok := c.GetQuery("amount")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount: " + rawAmount})
		return
	}

	result, err := h.svc.Transfer(c.Request.Context(), fromID, toID, amount)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, TransferResponse{
		TransferID:  result.TransferID.String(),
		From:        toAccountResponse(result.From),
		To:          toAccountResponse(result.To),
		Amount:      json.Number(result.Amount.String()),
		CompletedAt: result.CreatedAt,
	})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SetupRoutes 註冊所有路由
func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)

	v1 := r.Group("/v1/accounts")
	{
		v1.POST("", h.CreateAccount)
		v1.GET("", h.ListAccounts)
		v1.POST("/transfer", h.Transfer)
		v1.GET("/:accountId", h.GetAccount)
	}
}

// NewRouter 建立帶 recovery 與 zap access log 的 gin engine
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(logger))
	SetupRoutes(r, h)
	return r
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("http request failed", fields...)
			return
		}
		logger.Debug("http request", fields...)
	}
}

func toAccountResponse(account domain.Account) AccountResponse {
	return AccountResponse{
		AccountID: account.ID,
		Balance:   json.Number(account.Balance.String()),
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateAccount),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInvalidAccount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
