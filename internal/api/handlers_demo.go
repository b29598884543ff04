// handlers_demo.go - Interactive demo handlers
package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/logger"
	"github.com/pdf2json/landing/internal/models"
	"github.com/pdf2json/landing/internal/normalize"
	"github.com/vmihailenco/msgpack/v5"
)

// DemoHandlerImpl implements the DemoHandler interface
type DemoHandlerImpl struct {
	sessions SessionManager
}

// NewDemoHandler creates a new demo handler instance
func NewDemoHandler(sessions SessionManager) DemoHandler {
	return &DemoHandlerImpl{sessions: sessions}
}

// HandleCreateSession starts a new demo in the upload step
func (h *DemoHandlerImpl) HandleCreateSession(c echo.Context) error {
	snap, err := h.sessions.Create()
	if err != nil {
		return sessionError(err, "")
	}
	return c.JSON(http.StatusCreated, snap)
}

// HandleGetSession returns the current snapshot of a session
func (h *DemoHandlerImpl) HandleGetSession(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	snap, err := h.sessions.Get(id)
	if err != nil {
		return sessionError(err, id)
	}
	h.sessions.Touch(id)
	return c.JSON(http.StatusOK, snap)
}

// HandleDeleteSession removes a session and its stored file
func (h *DemoHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	if err := h.sessions.Delete(id); err != nil {
		return sessionError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSelectFile accepts a multipart "file" field. Non-PDF files are
// reported with accepted=false and leave the session unchanged.
func (h *DemoHandlerImpl) HandleSelectFile(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return NewValidationError("file")
	}

	src, err := fh.Open()
	if err != nil {
		return NewBadRequestError("cannot read uploaded file", err)
	}
	defer src.Close()

	accepted, snap, err := h.sessions.SelectFile(id, fh.Filename, fh.Header.Get(echo.HeaderContentType), src)
	if err != nil {
		return sessionError(err, id)
	}
	h.sessions.Touch(id)

	return c.JSON(http.StatusOK, selectFileResponse{
		Accepted: accepted,
		Session:  snap,
	})
}

// HandleSetSchema stores the optional schema text
func (h *DemoHandlerImpl) HandleSetSchema(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	var req setSchemaRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	snap, err := h.sessions.SetSchema(id, *req.Schema)
	if err != nil {
		return sessionError(err, id)
	}
	h.sessions.Touch(id)
	return c.JSON(http.StatusOK, snap)
}

// HandleSubmit sends the selected file to the parsing backend
func (h *DemoHandlerImpl) HandleSubmit(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	snap, err := h.sessions.Submit(id)
	if err != nil {
		return sessionError(err, id)
	}
	h.sessions.Touch(id)
	return c.JSON(http.StatusAccepted, snap)
}

// HandleReset returns the session to the upload step
func (h *DemoHandlerImpl) HandleReset(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	snap, err := h.sessions.Reset(id)
	if err != nil {
		return sessionError(err, id)
	}
	h.sessions.Touch(id)
	return c.JSON(http.StatusOK, snap)
}

// HandleGetResult returns the normalized result of a session in review
func (h *DemoHandlerImpl) HandleGetResult(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	res, err := h.sessions.Result(id)
	if err != nil {
		return sessionError(err, id)
	}
	h.sessions.Touch(id)
	return c.JSON(http.StatusOK, res)
}

// HandleCopyResult returns the result as the text placed on the clipboard
func (h *DemoHandlerImpl) HandleCopyResult(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	text, err := h.sessions.ClipboardText(id)
	if err != nil {
		return sessionError(err, id)
	}
	h.sessions.Touch(id)
	return c.String(http.StatusOK, text)
}

// HandleGetResultMsgpack returns the result in MessagePack format
func (h *DemoHandlerImpl) HandleGetResultMsgpack(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}

	res, err := h.sessions.Result(id)
	if err != nil {
		return sessionError(err, id)
	}

	out := *res
	if raw, ok := res.Value.(json.RawMessage); ok {
		if out.Value, err = normalize.Decode(raw); err != nil {
			return NewInternalError("failed to decode result", err)
		}
	}

	data, err := msgpack.Marshal(&out)
	if err != nil {
		logger.Error("msgpack encoding failed", "session", id, "error", err)
		return NewInternalError("failed to encode msgpack", err)
	}
	h.sessions.Touch(id)
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// Request/Response types

type selectFileResponse struct {
	Accepted bool               `json:"accepted"`
	Session  models.DemoSession `json:"session"`
}

type setSchemaRequest struct {
	Schema *string `json:"schema"`
}

func (r *setSchemaRequest) validate() error {
	if r.Schema == nil {
		return NewValidationError("schema")
	}
	return nil
}

// Helper functions

func sessionID(c echo.Context) (string, error) {
	id := c.Param("id")
	if id == "" {
		return "", NewValidationError("id")
	}
	return id, nil
}
