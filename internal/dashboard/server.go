// Package dashboard serves a read-only JSON view of conversation state.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/penpalhq/penpal/internal/store"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Store *store.Store
	Port  int
	Out   io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("dashboard: store is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts.Store)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// NewRouter builds the dashboard routes. Split out so tests can drive
// the handlers without a listening socket.
func NewRouter(st *store.Store) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handleHealth())
	router.GET("/api/threads", handleThreads(st))
	router.GET("/api/threads/:id/messages", handleThreadMessages(st))
	return router
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// threadView is one row of the thread listing.
type threadView struct {
	ThreadID  string `json:"thread_id"`
	Step      int    `json:"step"`
	Status    string `json:"status"`
	UserEmail string `json:"user_email,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func handleThreads(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		states, err := st.AllWorkflowStates()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		views := make([]threadView, 0, len(states))
		for _, s := range states {
			email, err := st.ThreadUserEmail(s.ThreadID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			views = append(views, threadView{
				ThreadID:  s.ThreadID,
				Step:      s.Step,
				Status:    s.Status,
				UserEmail: email,
				UpdatedAt: s.UpdatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		c.JSON(http.StatusOK, gin.H{"threads": views})
	}
}

// messageView is one row of a thread's history.
type messageView struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

func handleThreadMessages(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		threadID := c.Param("id")
		msgs, err := st.ThreadMessages(threadID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(msgs) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread has no messages"})
			return
		}

		views := make([]messageView, 0, len(msgs))
		for _, m := range msgs {
			views = append(views, messageView{
				MessageID: m.MessageID,
				Sender:    m.Sender,
				Subject:   m.Subject,
				Body:      m.Body,
				Timestamp: m.Timestamp.Format("2006-01-02 15:04:05"),
			})
		}
		c.JSON(http.StatusOK, gin.H{"thread_id": threadID, "messages": views})
	}
}
