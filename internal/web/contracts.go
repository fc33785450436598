package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noahxzhu/contract-reminder/internal/model"
	"github.com/noahxzhu/contract-reminder/internal/reminder"
	"github.com/noahxzhu/contract-reminder/internal/storage"
)

type contractRequest struct {
	Vendor         uuid.UUID            `json:"vendor"`
	ServiceName    string               `json:"service_name" binding:"required"`
	StartDate      model.Date           `json:"start_date"`
	ExpiryDate     model.Date           `json:"expiry_date"`
	PaymentDueDate model.Date           `json:"payment_due_date"`
	Amount         decimal.Decimal      `json:"amount"`
	Status         model.ContractStatus `json:"status"`
}

func (r contractRequest) apply(ct *model.ServiceContract) {
	ct.VendorID = r.Vendor
	ct.ServiceName = r.ServiceName
	ct.StartDate = r.StartDate
	ct.ExpiryDate = r.ExpiryDate
	ct.PaymentDueDate = r.PaymentDueDate
	ct.Amount = r.Amount
	ct.Status = r.Status
}

type contractResponse struct {
	*model.ServiceContract
	VendorName string `json:"vendor_name"`
}

func newContractResponse(ct *model.ServiceContract) contractResponse {
	return contractResponse{ServiceContract: ct, VendorName: ct.VendorName()}
}

func newContractResponses(contracts []*model.ServiceContract) []contractResponse {
	out := make([]contractResponse, 0, len(contracts))
	for _, ct := range contracts {
		out = append(out, newContractResponse(ct))
	}
	return out
}

func (s *Server) handleListContracts(c *gin.Context) {
	filter := storage.ContractFilter{}
	if raw := c.Query("vendor"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid vendor id")
			return
		}
		filter.VendorID = id
	}
	if raw := c.Query("status"); raw != "" {
		status := model.ContractStatus(raw)
		if !status.Valid() {
			badRequest(c, "invalid status")
			return
		}
		filter.Statuses = []model.ContractStatus{status}
	}

	contracts, err := s.store.ListContracts(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponses(contracts))
}

func (s *Server) handleGetContract(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ct, err := s.store.GetContract(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponse(ct))
}

func (s *Server) handleCreateContract(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	ct := &model.ServiceContract{}
	req.apply(ct)
	if err := s.store.CreateContract(ctx, ct); err != nil {
		s.respondError(c, err)
		return
	}
	created, err := s.store.GetContract(ctx, ct.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newContractResponse(created))
}

func (s *Server) handleUpdateContract(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	ct, err := s.store.GetContract(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	req.apply(ct)
	if err := s.store.UpdateContract(ctx, ct); err != nil {
		s.respondError(c, err)
		return
	}
	updated, err := s.store.GetContract(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponse(updated))
}

func (s *Server) handleDeleteContract(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteContract(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusRequest struct {
	Status model.ContractStatus `json:"status" binding:"required"`
}

func (s *Server) handleUpdateContractStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ct, err := s.store.UpdateContractStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newContractResponse(ct))
}

func (s *Server) handleDueSoon(field reminder.Field) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, ok := s.windowDaysParam(c)
		if !ok {
			return
		}
		contracts, err := s.engine.DueSoon(c.Request.Context(), field, days)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, newContractResponses(contracts))
	}
}
