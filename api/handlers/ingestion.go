package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openstay/reservstack/interfaces"
	"github.com/openstay/reservstack/internal/repository"
	"github.com/openstay/reservstack/internal/tracing"
	"github.com/openstay/reservstack/internal/utils"
)

// TriggerTenantCheck runs an immediate mailbox check for one tenant. Unlike
// the scheduled sweep, failures surface to the caller as a 502.
func TriggerTenantCheck(scheduler interfaces.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "TriggerTenantCheck", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		if err := utils.ValidateTenant(ctx); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		created, err := scheduler.TriggerTenant(ctx, tenant)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tenant":  tenant,
			"created": created,
		})
	}
}

// TriggerAllCheck runs a full sweep over every enabled tenant, same as a
// scheduler tick.
func TriggerAllCheck(scheduler interfaces.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "TriggerAllCheck", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		if err := scheduler.TriggerAll(ctx); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "sweep completed"})
	}
}

// EmailStatus reports a tenant's ingestion configuration without secrets.
func EmailStatus(scheduler interfaces.Scheduler, settingsRepo repository.TenantMailSettingsRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "EmailStatus", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		if err := utils.ValidateTenant(ctx); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		settings, err := settingsRepo.GetByTenant(ctx, tenant)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if settings == nil {
			c.JSON(http.StatusOK, gin.H{
				"tenant":            tenant,
				"configured":        false,
				"scheduler_running": scheduler.Running(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tenant":            tenant,
			"configured":        true,
			"enabled":           settings.Enabled,
			"host":              settings.ImapHost,
			"port":              settings.EffectivePort(),
			"tls":               settings.ImapTLS,
			"folder":            settings.EffectiveFolder(),
			"processed_folder":  settings.ProcessedFolder,
			"from_filters":      settings.FromFilters,
			"subject_filters":   settings.SubjectFilters,
			"scheduler_running": scheduler.Running(),
		})
	}
}
