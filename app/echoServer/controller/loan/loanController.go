package loan

import (
	"log/slog"
	"net/http"

	ls "libcirc/service/loan"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ls.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/loans
func (h *Controller) Create(c echo.Context) error {
	var req CreateLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Create(c.Request().Context(), uid, req.BookID)
	if err != nil {
		switch ls.Code(err) {
		case ls.ErrBookNotAvailable:
			return c.JSON(http.StatusConflict, echo.Map{"message": "book not available"})
		default:
			h.Log.Error("loan create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{"data": out})
}

// POST /v1/loans/return
func (h *Controller) Return(c echo.Context) error {
	var req ReturnLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Return(c.Request().Context(), uid, req.BookID)
	if err != nil {
		switch ls.Code(err) {
		case ls.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "no loan for this book"})
		case ls.ErrNotOpen:
			return c.JSON(http.StatusConflict, echo.Map{"message": "loan already returned"})
		default:
			h.Log.Error("loan return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// POST /v1/loans/renew
func (h *Controller) Renew(c echo.Context) error {
	var req RenewLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Renew(c.Request().Context(), uid, req.BookID)
	if err != nil {
		switch ls.Code(err) {
		case ls.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "no loan for this book"})
		case ls.ErrNotOpen:
			return c.JSON(http.StatusConflict, echo.Map{"message": "loan already returned"})
		case ls.ErrRenewLimit:
			return c.JSON(http.StatusConflict, echo.Map{"message": "cannot renew more than twice"})
		default:
			h.Log.Error("loan renew", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/loans/current
func (h *Controller) Current(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.Current(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("loan current", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/loans/history
func (h *Controller) History(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.History(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("loan history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/fines
func (h *Controller) Fines(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	fines, err := h.Svc.FinesByInstance(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("fines", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": fines})
}
