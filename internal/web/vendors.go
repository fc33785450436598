package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noahxzhu/contract-reminder/internal/model"
	"github.com/noahxzhu/contract-reminder/internal/storage"
)

type vendorRequest struct {
	Name          string             `json:"name" binding:"required"`
	ContactPerson string             `json:"contact_person" binding:"required"`
	Email         string             `json:"email" binding:"required,email"`
	Phone         string             `json:"phone" binding:"required"`
	Status        model.VendorStatus `json:"status"`
}

func (r vendorRequest) apply(v *model.Vendor) {
	v.Name = r.Name
	v.ContactPerson = r.ContactPerson
	v.Email = r.Email
	v.Phone = r.Phone
	v.Status = r.Status
}

type vendorResponse struct {
	*model.Vendor
	ActiveServices []contractResponse `json:"active_services"`
}

// activeServices groups ACTIVE contracts by vendor, optionally for one vendor only.
func (s *Server) activeServices(c *gin.Context, vendorID uuid.UUID) (map[uuid.UUID][]contractResponse, error) {
	contracts, err := s.store.ListContracts(c.Request.Context(), storage.ContractFilter{
		VendorID: vendorID,
		Statuses: []model.ContractStatus{model.ContractActive},
	})
	if err != nil {
		return nil, err
	}
	grouped := make(map[uuid.UUID][]contractResponse)
	for _, ct := range contracts {
		grouped[ct.VendorID] = append(grouped[ct.VendorID], newContractResponse(ct))
	}
	return grouped, nil
}

func newVendorResponse(v *model.Vendor, active []contractResponse) vendorResponse {
	if active == nil {
		active = []contractResponse{}
	}
	return vendorResponse{Vendor: v, ActiveServices: active}
}

func (s *Server) handleListVendors(c *gin.Context) {
	vendors, err := s.store.ListVendors(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	active, err := s.activeServices(c, uuid.Nil)
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]vendorResponse, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, newVendorResponse(v, active[v.ID]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetVendor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := s.store.GetVendor(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	active, err := s.activeServices(c, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newVendorResponse(v, active[id]))
}

func (s *Server) handleCreateVendor(c *gin.Context) {
	var req vendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	v := &model.Vendor{}
	req.apply(v)
	if err := s.store.CreateVendor(c.Request.Context(), v); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newVendorResponse(v, nil))
}

func (s *Server) handleUpdateVendor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req vendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	v, err := s.store.GetVendor(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	req.apply(v)
	if err := s.store.UpdateVendor(ctx, v); err != nil {
		s.respondError(c, err)
		return
	}
	active, err := s.activeServices(c, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newVendorResponse(v, active[id]))
}

func (s *Server) handleDeleteVendor(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteVendor(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
