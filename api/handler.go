package api

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/execution"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/server"
	"github.com/kbukum/mediaflow/trigger"
	"github.com/kbukum/mediaflow/validation"
)

// Engine is the part of the orchestrator the control surface drives.
type Engine interface {
	Status(ctx context.Context, id string) (*execution.Execution, error)
	Cancel(ctx context.Context, id string) error
	Complete(ctx context.Context, token string, outcome execution.Outcome) error
}

// Handler serves the control routes.
type Handler struct {
	engine   Engine
	triggers *trigger.Adapter
	log      *logger.Logger
}

// New creates a handler. Starts go through triggers so the same bucket and
// prefix rules apply as for broker notifications.
func New(engine Engine, triggers *trigger.Adapter, log *logger.Logger) *Handler {
	return &Handler{engine: engine, triggers: triggers, log: log.WithComponent("api")}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/executions", h.start)
	v1.GET("/executions/:id", h.status)
	v1.POST("/executions/:id/cancel", h.cancel)
	v1.POST("/callbacks", h.callback)
	v1.POST("/events/s3", h.s3Event)
}

func (h *Handler) start(c *gin.Context) {
	var req StartRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	id, err := h.triggers.Submit(c.Request.Context(), req.Trigger())
	if err != nil {
		appErr := errors.From(err)
		if id != "" {
			appErr = appErr.WithDetail("execution_id", id)
		}
		server.RespondWithError(c, appErr)
		return
	}
	server.RespondCreated(c, StartResponse{ExecutionID: id})
}

func (h *Handler) status(c *gin.Context) {
	x, err := h.engine.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, NewExecutionView(x))
}

func (h *Handler) cancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Cancel(c.Request.Context(), id); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.log.WithContext(c.Request.Context()).Info("Execution cancelled", logger.Fields(logger.FieldExecutionID, id))
	server.RespondOK(c, CancelResponse{ExecutionID: id, Status: execution.StatusCancelled})
}

func (h *Handler) callback(c *gin.Context) {
	var req CallbackRequest
	if err := bind(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if req.Status == CallbackFailed && req.Error == nil {
		server.RespondWithError(c, errors.InvalidInput("error", "required when status is failed"))
		return
	}

	if err := h.engine.Complete(c.Request.Context(), req.Token, req.Outcome()); err != nil {
		h.log.WithContext(c.Request.Context()).Warn("Callback rejected", logger.ErrorFields("complete", err))
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, CallbackResponse{Accepted: true})
}

func (h *Handler) s3Event(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		server.RespondWithError(c, readError(err))
		return
	}
	result, err := h.triggers.HandleEvent(c.Request.Context(), data)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, result)
}

// bind decodes the JSON body into dst and validates it.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return readError(err)
	}
	return validation.Validate(dst)
}

func readError(err error) *errors.AppError {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.New(errors.ErrCodeInvalidInput, "request body too large", http.StatusRequestEntityTooLarge).WithCause(err)
	}
	return errors.Validation("malformed request body").WithCause(err)
}
