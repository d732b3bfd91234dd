package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Veein-web/AI-Background-Remover/internal/billing"
)

func (h HandlerSet) Index(c *gin.Context) {
	h.render(c, "index.html", nil)
}

func (h HandlerSet) Pricing(c *gin.Context) {
	h.render(c, "pricing.html", gin.H{
		"Title": "Pricing",
		"Tiers": billing.Tiers(),
	})
}
