package rpadispatch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coverlane/agency_backend/config"
	"github.com/coverlane/agency_backend/middlewares"
	"github.com/coverlane/agency_backend/models"
	"github.com/coverlane/agency_backend/models/reports"
	"github.com/coverlane/agency_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type AutoSubmitRequest struct {
	Carriers []string `json:"carriers"`
}

type AutoSubmitResponse struct {
	Success  bool                                `json:"success"`
	Message  string                              `json:"message"`
	Results  map[string]*CarrierSubmissionResult `json:"results"`
	RpaTasks models.RpaTaskMap                   `json:"rpa_tasks"`
}

func resolveAgencyID(c *gin.Context) (string, error) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || strings.TrimSpace(username) == "" {
		return "", errors.New("unauthorized")
	}
	user, err := models.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		return "", errors.New("unauthorized")
	}
	agencyId := strings.TrimSpace(user.AgencyId)
	if agencyId == "" {
		return "", errors.New("agency_id is required")
	}
	return agencyId, nil
}

func CreateSubmissionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyId, err := resolveAgencyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req models.NewSubmission
		if err := c.ShouldBindJSON(&req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		sub, err := models.CreateSubmission(c.Request.Context(), agencyId, &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}

func GetSubmissionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyId, err := resolveAgencyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sub, err := models.GetSubmission(c.Request.Context(), agencyId, c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"submission": sub,
			"rpa_tasks":  sub.RpaTasks(),
		})
	}
}

func ListSubmissionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyId, err := resolveAgencyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		subs, err := models.GetSubmissions(c.Request.Context(), agencyId, 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": subs})
	}
}

func UpdateInsuredInfoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyId, err := resolveAgencyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sub, err := models.GetSubmission(c.Request.Context(), agencyId, c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var req models.NewInsuredInfo
		if err := c.ShouldBindJSON(&req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if strings.TrimSpace(req.ContactNumber) != "" {
			if err := utils.ValidatePhoneNumber(req.ContactNumber, utils.CountryCode); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "contact number is not a valid US phone number", "field": "contactNumber"})
				return
			}
		}

		var info *models.InsuredInfo
		if infoId := utils.DereferencePtr(sub.InsuredInfoId); infoId != 0 {
			info, err = models.UpdateInsuredInfo(c.Request.Context(), agencyId, infoId, &req)
		} else {
			info, err = models.CreateInsuredInfo(c.Request.Context(), agencyId, &req)
			if err == nil {
				err = models.AttachInsuredInfo(c.Request.Context(), sub, info.ID)
			}
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// AutoSubmitHandler validates the submission against the selected carrier
// set and fans it out to the carrier bots. The validator runs BEFORE any
// network call: no carrier is contacted when the batch is invalid, even if
// only one selected carrier carries the violated rule.
func AutoSubmitHandler(dispatcher *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		agencyId, err := resolveAgencyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sub, err := models.GetSubmission(c.Request.Context(), agencyId, c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var req AutoSubmitRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		carriers, parseErr := parseCarrierSet(req.Carriers)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error(), "field": "carriers"})
			return
		}

		// Each dispatch normalizes a fresh copy from current storage state.
		rec := NormalizeInsuredInfo(sub.InsuredShape(), sub.BusinessName)

		outcome, verr := dispatcher.ValidateAndDispatch(c.Request.Context(), rec, sub.ID, carriers, time.Now())
		if verr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   verr.Message,
				"field":   verr.Field,
				"details": verr.Details,
			})
			return
		}

		// Best-effort lock narrows the read-merge-write race on the task map.
		release, lockErr := utils.SubmissionLock(c.Request.Context(), sub.ID, "rpadispatch", "AutoSubmitHandler")
		if lockErr != nil {
			c.JSON(http.StatusConflict, gin.H{"error": lockErr.Error()})
			return
		}
		defer release()

		// The merge base must be read inside the critical section, straight
		// from the database: a bot callback may have landed since the handler
		// loaded the submission, and merging against that stale snapshot
		// would overwrite its result.
		db := config.GetDB()
		var fresh models.Submission
		if err := db.WithContext(c.Request.Context()).Where("id = ? AND agency_id = ?", sub.ID, agencyId).Take(&fresh).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		merged := fresh.RpaTasks().Merge(TaskMapFromOutcome(outcome, time.Now()))
		if err := models.UpdateSubmissionTasks(c.Request.Context(), &fresh, merged); err != nil {
			config.LogError(logger, "rpadispatch", "AutoSubmitHandler", "persist task map", sub.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		results := make(map[string]*CarrierSubmissionResult, len(outcome.Results))
		for carrier, result := range outcome.Results {
			results[string(carrier)] = result
		}
		resp := AutoSubmitResponse{
			Success:  outcome.AllSucceeded,
			Results:  results,
			RpaTasks: merged,
		}

		switch {
		case outcome.AllSucceeded:
			resp.Message = fmt.Sprintf("all %d carriers dispatched", len(outcome.Results))
			c.JSON(http.StatusOK, resp)
		case outcome.PartialSuccess():
			resp.Message = fmt.Sprintf("%d of %d carriers dispatched; the rest need manual follow-up", outcome.SuccessCount, len(outcome.Results))
			c.JSON(http.StatusMultiStatus, resp)
		default:
			resp.Message = "all carrier dispatches failed"
			c.JSON(http.StatusInternalServerError, resp)
		}
	}
}

func parseCarrierSet(raw []string) ([]CarrierType, error) {
	if len(raw) == 0 {
		return AllCarriers, nil
	}
	var carriers []CarrierType
	for _, s := range utils.UniqueSlice(raw) {
		carrier, err := ParseCarrierType(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return nil, err
		}
		carriers = append(carriers, carrier)
	}
	return carriers, nil
}

// RpaStatusHandler is the tracker read endpoint: authoritative persisted
// state, decorated with the presentation-only display status and progress.
func RpaStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyId, err := resolveAgencyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sub, err := models.GetSubmission(c.Request.Context(), agencyId, c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		tasks := sub.RpaTasks()
		simulate := config.SimulatedProgressEnabled()

		views := make(map[string]gin.H, len(tasks))
		for carrier, task := range tasks {
			display := task.Status
			if simulate {
				display = DisplayStatus(task, now)
			}
			views[carrier] = gin.H{
				"task":           task,
				"display_status": display,
				"progress":       ProgressPercent(display, task, now),
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"rpa_tasks":             views,
			"should_poll":           ShouldContinuePolling(tasks),
			"poll_interval_seconds": int(PollInterval.Seconds()),
		})
	}
}

// QuoteSheetHandler downloads the submission's carrier results as an xlsx
// workbook for manual follow-up.
func QuoteSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyId, err := resolveAgencyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sub, err := models.GetSubmission(c.Request.Context(), agencyId, c.Param("id"))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		carrierOrder := make([]string, 0, len(AllCarriers))
		for _, carrier := range AllCarriers {
			carrierOrder = append(carrierOrder, string(carrier))
		}
		f, err := reports.BuildQuoteSheet(sub, carrierOrder)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=quote-sheet-%s.xlsx", sub.ID))
		if err := f.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "rpadispatch", "QuoteSheetHandler", "write workbook", sub.ID, err)
		}
	}
}

type BotCallbackRequest struct {
	SubmissionId string                 `json:"submission_id" binding:"required"`
	Carrier      string                 `json:"carrier" binding:"required"`
	Status       string                 `json:"status" binding:"required"`
	Result       map[string]interface{} `json:"result"`
	Error        string                 `json:"error"`
	ErrorDetails string                 `json:"error_details"`
}

// BotCallbackHandler is the authoritative write path: carrier bots report
// lifecycle transitions here. Backward reports are dropped (forward-only
// lifecycle); unknown carriers or submissions are rejected.
func BotCallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		// Bots authenticate with service JWTs, not user sessions.
		if middlewares.CtxValue(c.Request.Context()) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req BotCallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if _, err := ParseCarrierType(req.Carrier); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "carrier"})
			return
		}

		// Lock before reading: the task map read outside the critical
		// section is a stale snapshot once a sibling callback commits.
		release, lockErr := utils.SubmissionLock(c.Request.Context(), req.SubmissionId, "rpadispatch", "BotCallbackHandler")
		if lockErr != nil {
			c.JSON(http.StatusConflict, gin.H{"error": lockErr.Error()})
			return
		}
		defer release()

		db := config.GetDB()
		var sub models.Submission
		if err := db.WithContext(c.Request.Context()).Where("id = ?", req.SubmissionId).Take(&sub).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
			return
		}

		tasks := sub.RpaTasks()
		task, ok := tasks[req.Carrier]
		if !ok || task == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no task tracked for carrier"})
			return
		}

		report := map[string]interface{}{
			"status":        req.Status,
			"error":         req.Error,
			"error_details": req.ErrorDetails,
		}
		if req.Result != nil {
			report["result"] = req.Result
		}
		if err := ApplyBotStatus(task, report, time.Now()); err != nil {
			config.LogError(logger, "rpadispatch", "BotCallbackHandler", "apply status", req, err)
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		if err := models.UpdateSubmissionTasks(c.Request.Context(), &sub, tasks); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
	}
}
