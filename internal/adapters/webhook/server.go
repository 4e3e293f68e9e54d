package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// ticketProcessor is the slice of the triage service the webhook needs
type ticketProcessor interface {
	ProcessTicketPayload(ctx context.Context, ticket *core.Ticket) (*core.Verdict, error)
}

// ticketPayload is the ticket object inside a helpdesk webhook notification
type ticketPayload struct {
	ID          int64    `json:"id" binding:"required"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Email       string   `json:"email"`
	RequesterID int64    `json:"requester_id"`
	ResponderID int64    `json:"responder_id"`
	Status      int      `json:"status"`
	Tags        []string `json:"tags"`
}

type webhookRequest struct {
	Ticket *ticketPayload `json:"ticket" binding:"required"`
}

func (p *ticketPayload) toTicket() *core.Ticket {
	return &core.Ticket{
		ID:             p.ID,
		Subject:        p.Subject,
		Description:    p.Description,
		RequesterID:    p.RequesterID,
		RequesterEmail: p.Email,
		ResponderID:    p.ResponderID,
		Status:         p.Status,
		Tags:           p.Tags,
	}
}

// Server receives push notifications from the helpdesk and triages the
// delivered ticket immediately, without waiting for the next polling cycle
type Server struct {
	processor ticketProcessor
	logger    *zap.Logger
	addr      string
	srv       *http.Server
}

// NewServer creates a new webhook server
func NewServer(processor ticketProcessor, addr string, logger *zap.Logger) *Server {
	return &Server{
		processor: processor,
		logger:    logger,
		addr:      addr,
	}
}

// Start launches the HTTP listener in the background
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.srv = &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
	}

	s.logger.Info("Webhook server starting", zap.String("address", s.addr))

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Webhook server error", zap.Error(err))
		}
	}()

	return nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.POST("/webhook/ticket", s.handleTicket)

	return router
}

// Stop drains in-flight requests and shuts the listener down
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTicket(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("Rejected malformed webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ticket := req.Ticket.toTicket()
	verdict, err := s.processor.ProcessTicketPayload(c.Request.Context(), ticket)
	if err != nil {
		s.logger.Error("Failed to process webhook ticket",
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"ticket_id": verdict.TicketID,
		"outcome":   string(verdict.Outcome),
		"dry_run":   verdict.DryRun,
	})
}
