package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noahxzhu/contract-reminder/internal/model"
)

// credentialRequest uses pointers so omitted booleans and the password can be
// told apart from explicit values.
type credentialRequest struct {
	Name      string  `json:"name"`
	FromEmail string  `json:"from_email" binding:"required,email"`
	SMTPHost  string  `json:"smtp_host" binding:"required"`
	SMTPPort  int     `json:"smtp_port"`
	UseTLS    *bool   `json:"use_tls"`
	UseSSL    *bool   `json:"use_ssl"`
	Username  string  `json:"username"`
	Password  *string `json:"password"`
	IsActive  *bool   `json:"is_active"`
}

func (r credentialRequest) apply(cred *model.EmailCredential, creating bool) {
	cred.Name = r.Name
	cred.FromEmail = r.FromEmail
	cred.SMTPHost = r.SMTPHost
	cred.SMTPPort = r.SMTPPort
	cred.Username = r.Username

	if r.UseSSL != nil {
		cred.UseSSL = *r.UseSSL
	}
	if r.UseTLS != nil {
		cred.UseTLS = *r.UseTLS
	} else if creating {
		cred.UseTLS = !cred.UseSSL
	}
	if r.IsActive != nil {
		cred.IsActive = *r.IsActive
	} else if creating {
		cred.IsActive = true
	}
	if r.Password != nil {
		cred.Password = *r.Password
	}
}

func (s *Server) handleListCredentials(c *gin.Context) {
	creds, err := s.store.ListCredentials(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if creds == nil {
		creds = []*model.EmailCredential{}
	}
	c.JSON(http.StatusOK, creds)
}

func (s *Server) handleGetCredential(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cred, err := s.store.GetCredential(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

func (s *Server) handleActiveCredential(c *gin.Context) {
	cred, err := s.resolver.Active(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if cred == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active email credential"})
		return
	}
	c.JSON(http.StatusOK, cred)
}

func (s *Server) handleCreateCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cred := &model.EmailCredential{}
	req.apply(cred, true)
	if err := s.store.CreateCredential(c.Request.Context(), cred); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cred)
}

func (s *Server) handleUpdateCredential(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	cred, err := s.store.GetCredential(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	req.apply(cred, false)
	if err := s.store.UpdateCredential(ctx, cred); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

func (s *Server) handleDeleteCredential(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteCredential(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
