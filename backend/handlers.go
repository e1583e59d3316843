package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ftahirops/healtop/model"
)

func (s *Server) handleStatus(c *gin.Context) {
	m, err := s.src.Metrics(c.Request.Context())
	if err != nil {
		// Collection failures report zeros rather than failing the poll.
		s.log.Warn("metrics unavailable", zap.Error(err))
		m = model.Metrics{}
	}
	s.maybeRaise(m)

	pending := s.Pending()
	files := []model.FileEntry{}
	if pending != nil {
		if lf, err := s.src.LargeFiles(c.Request.Context()); err == nil {
			if len(lf) > 10 {
				lf = lf[:10]
			}
			files = lf
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        m,
		"pending_alert": pending,
		"large_files":   files,
		"timestamp":     s.opts.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	h := s.History()
	if h == nil {
		h = []model.HistoryItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"history":   h,
		"timestamp": s.opts.Now().Format(time.RFC3339),
	})
}

type actionBody struct {
	Action    string `json:"action" binding:"omitempty,oneof=auto manual scale"`
	AlertType string `json:"alert_type"`
}

var actionMessages = map[string]string{
	"auto":   "Auto cleanup completed successfully (dry run)",
	"manual": "Manual mode - SSH to server and investigate",
	"scale":  "Scaling recommended - check AWS console or Terraform",
}

func (s *Server) handleAction(c *gin.Context) {
	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if body.Action == "" {
		body.Action = "auto"
	}

	s.mu.Lock()
	alertType, resolved := s.resolveLocked()
	if body.AlertType != "" {
		alertType = strings.ToLower(body.AlertType)
	}
	result := gin.H{"status": "success", "action": body.Action, "message": actionMessages[body.Action]}
	if resolved != nil {
		s.addHistoryLocked(strings.ToUpper(alertType)+"_RESOLVED", gin.H{"action": body.Action, "alert": resolved})
	}
	s.addHistoryLocked(strings.ToUpper(alertType)+"_ACTION", result)
	s.mu.Unlock()

	s.log.Info("action recorded", zap.String("action", body.Action), zap.String("alert_type", alertType))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleManualOptions(c *gin.Context) {
	resource, ok := model.ParseResource(c.Param("resource"))
	if !ok {
		badRequest(c, "Unknown alert type: "+strings.ToUpper(c.Param("resource")))
		return
	}
	ctx := c.Request.Context()

	var (
		opts        []model.ManualOption
		title, desc string
	)
	switch resource {
	case model.ResourceCPU:
		title, desc = "High CPU Processes", "Select processes to terminate (SIGTERM)"
		procs, err := s.src.TopProcesses(ctx, ByCPU, s.opts.ProcessLimit)
		if err != nil {
			serverError(c, err)
			return
		}
		for _, p := range procs {
			if p.CPU > 0.1 {
				opts = append(opts, processOption(p))
			}
		}
	case model.ResourceMemory:
		title, desc = "Memory Management Options", "Select action to free memory"
		opts = append(opts, model.ManualOption{
			Kind:     model.OptionAction,
			ActionID: "clear_cache",
			Name:     "Clear System Cache (Safe)",
		})
		procs, err := s.src.TopProcesses(ctx, ByMemory, s.opts.ProcessLimit)
		if err != nil {
			serverError(c, err)
			return
		}
		for _, p := range procs {
			if p.Mem > 0.1 {
				opts = append(opts, processOption(p))
			}
		}
	case model.ResourceDisk:
		title, desc = "Large Files & Cleanup Options", "Select files/actions to free disk space"
		opts = append(opts, model.ManualOption{
			Kind:     model.OptionAction,
			ActionID: "clear_package_cache",
			Name:     "Clear Package Cache",
			Size:     "~100-500MB",
		})
		files, err := s.src.LargeFiles(ctx)
		if err != nil {
			serverError(c, err)
			return
		}
		for _, f := range files {
			opts = append(opts, model.ManualOption{Kind: model.OptionFile, Path: f.Path, Size: f.Size, Safe: f.Safe})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"alert_type":  strings.ToUpper(string(resource)),
		"title":       title,
		"description": desc,
		"options":     opts,
	})
}

func processOption(p ProcessInfo) model.ManualOption {
	cmd := p.Command
	if len(cmd) > 80 {
		cmd = cmd[:80]
	}
	return model.ManualOption{
		Kind:    model.OptionProcess,
		PID:     strconv.Itoa(int(p.PID)),
		User:    p.User,
		CPU:     fmt.Sprintf("%.1f%%", p.CPU),
		Mem:     fmt.Sprintf("%.1f%%", p.Mem),
		Command: cmd,
	}
}

type manualBody struct {
	Resource   string   `json:"resource" binding:"required,oneof=cpu memory disk"`
	Selections []string `json:"selections" binding:"required,min=1,dive,required"`
}

func (s *Server) handleManualExecute(c *gin.Context) {
	var body manualBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "No selections provided: "+err.Error())
		return
	}

	var results, failures []string
	for _, sel := range body.Selections {
		switch {
		case body.Resource == "memory" && sel == model.MemoryCacheValue:
			results = append(results, "Would clear system cache")
		case body.Resource == "disk" && sel == "clear_package_cache":
			results = append(results, "Would clean package cache")
		case body.Resource == "disk" && strings.HasPrefix(sel, "/"):
			results = append(results, "Would delete: "+sel)
		case body.Resource == "disk":
			failures = append(failures, "Unknown disk action: "+sel)
		default:
			if _, err := strconv.Atoi(sel); err != nil {
				failures = append(failures, "Invalid PID: "+sel)
				continue
			}
			results = append(results, "Would kill PID "+sel)
		}
	}

	s.mu.Lock()
	s.addHistoryLocked(fmt.Sprintf("MANUAL_%s_CLEANUP", strings.ToUpper(body.Resource)), gin.H{
		"selections": body.Selections,
		"results":    results,
		"errors":     failures,
	})
	s.resolveLocked()
	s.mu.Unlock()

	msg := fmt.Sprintf("Completed %d actions (dry run)", len(results))
	status := "success"
	if len(failures) > 0 {
		msg += fmt.Sprintf(" (%d failed)", len(failures))
		status = "partial"
	}
	s.log.Info("manual execution recorded", zap.String("resource", body.Resource), zap.Strings("selections", body.Selections))
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"message": msg,
		"results": results,
		"errors":  failures,
	})
}

func (s *Server) handleDismiss(c *gin.Context) {
	s.mu.Lock()
	if _, a := s.resolveLocked(); a != nil {
		s.addHistoryLocked("ALERT_DISMISSED", gin.H{"alert": a})
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "dismissed", "message": "Alert dismissed"})
}

type raiseBody struct {
	AlertType    string `json:"alert_type" binding:"required"`
	Severity     string `json:"severity"`
	Threshold    string `json:"threshold"`
	CurrentUsage string `json:"current_usage"`
}

func (s *Server) handleRaise(c *gin.Context) {
	var body raiseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !s.Raise(body.AlertType, body.Severity, body.Threshold, body.CurrentUsage) {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "an alert is already pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "alert raised", "pending_alert": s.Pending()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": msg})
}

func serverError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
