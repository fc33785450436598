package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noahxzhu/contract-reminder/internal/model"
)

func (s *Server) handleReminders(c *gin.Context) {
	days, ok := s.windowDaysParam(c)
	if !ok {
		return
	}
	payloads, err := s.engine.BuildPayloads(c.Request.Context(), days)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payloads)
}

func (s *Server) handleReport(c *gin.Context) {
	days, ok := s.windowDaysParam(c)
	if !ok {
		return
	}
	report, err := s.engine.BuildReport(c.Request.Context(), days)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleSendEmails(c *gin.Context) {
	days, ok := s.windowDaysParam(c)
	if !ok {
		return
	}
	res, err := s.dispatcher.Send(c.Request.Context(), days)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleEmailLogs(c *gin.Context) {
	var filter model.EmailLogFilter
	if raw := c.Query("contract_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid contract_id")
			return
		}
		filter.ContractID = id
	}

	var ok bool
	if filter.Limit, ok = intQuery(c, "limit", 0); !ok {
		return
	}
	if filter.Offset, ok = intQuery(c, "offset", 0); !ok {
		return
	}

	logs, err := s.store.ListEmailLogs(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if logs == nil {
		logs = []*model.EmailLog{}
	}
	c.JSON(http.StatusOK, logs)
}
