package fineledger

import (
	"log/slog"
	"net/http"

	fls "libcirc/service/fineledger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc fls.Service
	V   *validator.Validate
	Log *slog.Logger
}

type PayFineReq struct {
	LoanID int64   `json:"loan_id" validate:"required,gt=0"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// POST /v1/fines/payments
func (h *Controller) Pay(c echo.Context) error {
	var req PayFineReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Pay(c.Request().Context(), uid, req.LoanID, req.Amount)
	if err != nil {
		switch fls.Code(err) {
		case fls.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "loan not found"})
		case fls.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case fls.ErrLoanStillOpen:
			return c.JSON(http.StatusConflict, echo.Map{"message": "return the book before settling its fine"})
		case fls.ErrBadAmount:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid amount"})
		case fls.ErrExceedsBalance:
			return c.JSON(http.StatusConflict, echo.Map{"message": "amount exceeds outstanding fine"})
		default:
			h.Log.Error("fine payment", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": out})
}

// GET /v1/fines/ledger
func (h *Controller) Ledger(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.Ledger(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("fine ledger", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
