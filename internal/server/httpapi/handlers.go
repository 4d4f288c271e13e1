package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/logging"
	"github.com/dmitrijs2005/pinmail/internal/server/controller"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Handlers adapts controller outcomes to HTTP: a Render becomes a 200 JSON
// document and a Redirect a 303.
type Handlers struct {
	ctrl *controller.Controller
	log  logging.Logger
}

func NewHandlers(ctrl *controller.Controller, l logging.Logger) *Handlers {
	return &Handlers{ctrl: ctrl, log: l}
}

func (h *Handlers) respond(c *gin.Context, out controller.Outcome, err error) {
	if err != nil {
		h.log.Error(c.Request.Context(), "handler failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	switch o := out.(type) {
	case controller.Render:
		c.JSON(http.StatusOK, o)
	case controller.Redirect:
		c.Redirect(http.StatusSeeOther, o.Target)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func identifier(c *gin.Context) *string {
	if v := c.Param("identifier"); v != "" {
		return &v
	}
	return nil
}

func (h *Handlers) Inbox(c *gin.Context) {
	out, err := h.ctrl.Inbox(c.Request.Context(), sessionFrom(c))
	h.respond(c, out, err)
}

func (h *Handlers) Read(c *gin.Context) {
	out, err := h.ctrl.Read(c.Request.Context(), sessionFrom(c), c.Param("hash"))
	h.respond(c, out, err)
}

func (h *Handlers) Delete(c *gin.Context) {
	out, err := h.ctrl.Delete(c.Request.Context(), sessionFrom(c), c.Param("hash"))
	h.respond(c, out, err)
}

func (h *Handlers) Deleted(c *gin.Context) {
	out, err := h.ctrl.Deleted(c.Request.Context(), sessionFrom(c))
	h.respond(c, out, err)
}

func (h *Handlers) Compose(c *gin.Context) {
	out, err := h.ctrl.Send(c.Request.Context(), sessionFrom(c), identifier(c), nil)
	h.respond(c, out, err)
}

func (h *Handlers) Send(c *gin.Context) {
	var form controller.SendForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if c.ContentType() != binding.MIMEJSON {
		form.RemoveOnRead = controller.Checked(c.PostForm("remove_on_read"))
	}
	out, err := h.ctrl.Send(c.Request.Context(), sessionFrom(c), identifier(c), &form)
	h.respond(c, out, err)
}

func (h *Handlers) PinPrompt(c *gin.Context) {
	out, err := h.ctrl.EnterPin(c.Request.Context(), sessionFrom(c), nil)
	h.respond(c, out, err)
}

func (h *Handlers) EnterPin(c *gin.Context) {
	var form controller.PinForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	out, err := h.ctrl.EnterPin(c.Request.Context(), sessionFrom(c), &form)
	h.respond(c, out, err)
}

func (h *Handlers) ChangePinForm(c *gin.Context) {
	out, err := h.ctrl.ChangePin(c.Request.Context(), sessionFrom(c), nil)
	h.respond(c, out, err)
}

func (h *Handlers) ChangePin(c *gin.Context) {
	var form controller.ChangePinForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	out, err := h.ctrl.ChangePin(c.Request.Context(), sessionFrom(c), &form)
	h.respond(c, out, err)
}

func (h *Handlers) Logout(c *gin.Context) {
	out, err := h.ctrl.Logout(c.Request.Context(), sessionFrom(c))
	if err == nil {
		c.SetCookie(common.SessionCookieName, "", -1, "/", "", false, true)
	}
	h.respond(c, out, err)
}
