package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openstay/reservstack/internal/tracing"
	"github.com/openstay/reservstack/services/parser"
)

type parseRequest struct {
	Text string `json:"text" binding:"required"`
	HTML string `json:"html"`
}

// ParseReservation runs the email parser on raw content without touching any
// mailbox. Meant for diagnosing provider template changes.
func ParseReservation(emailParser *parser.ReservationEmailParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ParseReservation", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var req parseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		parsed := emailParser.Parse(req.Text, req.HTML)
		if parsed == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"parsed": false,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"parsed":      true,
			"reservation": parsed,
		})
	}
}
