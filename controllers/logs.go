package controllers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"schoolfees_go/database"
	"schoolfees_go/models"
	"schoolfees_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LogController exposes the audit trail of fee mutations: who created or
// deleted students, marked payments, changed settings.
type LogController struct{}

// Resources the fee tracker writes audit entries for. The filter rejects
// anything else so typos do not silently return an empty page.
var knownLogResources = map[string]struct{}{
	"students":       {},
	"payments":       {},
	"receipts":       {},
	"exports":        {},
	"users":          {},
	"admin_settings": {},
	"fee_settings":   {},
}

type LogEntry struct {
	ID         uint           `json:"id"`
	UserID     uint           `json:"user_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID uint           `json:"resource_id"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address"`
	CreatedAt  time.Time      `json:"created_at"`
	User       *LogUser       `json:"user,omitempty"`
}

type LogUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toLogEntry(log models.ActivityLog) LogEntry {
	entry := LogEntry{
		ID:         log.ID,
		UserID:     log.UserID,
		Action:     log.Action,
		Resource:   log.Resource,
		ResourceID: log.ResourceID,
		IPAddress:  log.IPAddress,
		CreatedAt:  log.CreatedAt,
	}
	if len(log.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(log.Details, &details); err == nil {
			entry.Details = details
		}
	}
	if log.User.ID > 0 {
		entry.User = &LogUser{ID: log.User.ID, Username: log.User.Username, Role: log.User.Role}
	}
	return entry
}

func logQueryFilters(c *fiber.Ctx) (*gorm.DB, error) {
	query := database.DB.Model(&models.ActivityLog{}).Preload("User")

	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		if _, ok := knownLogResources[resource]; !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Unknown resource filter")
		}
		query = query.Where("resource = ?", resource)
	}
	if startDate := c.Query("start_date"); startDate != "" {
		if parsed, err := time.Parse("2006-01-02", startDate); err == nil {
			query = query.Where("created_at >= ?", parsed)
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		if parsed, err := time.Parse("2006-01-02", endDate); err == nil {
			query = query.Where("created_at < ?", parsed.Add(24*time.Hour))
		}
	}
	return query, nil
}

// GetLogs retrieves paginated activity logs with filters
func (lc *LogController) GetLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit

	query, err := logQueryFilters(c)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logrus.WithError(err).Error("Failed to count activity logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve logs"})
	}

	var rows []models.ActivityLog
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		logrus.WithError(err).Error("Failed to retrieve activity logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve logs"})
	}

	entries := make([]LogEntry, len(rows))
	for i, row := range rows {
		entries[i] = toLogEntry(row)
	}

	return c.JSON(fiber.Map{
		"logs":        entries,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
	})
}

// GetLogStats summarizes recent audit activity for the admin screen
func (lc *LogController) GetLogStats(c *fiber.Ctx) error {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var total, totalToday, totalThisMonth, paymentsMarkedToday int64
	database.DB.Model(&models.ActivityLog{}).Count(&total)
	database.DB.Model(&models.ActivityLog{}).Where("created_at >= ?", today).Count(&totalToday)
	database.DB.Model(&models.ActivityLog{}).Where("created_at >= ?", thisMonth).Count(&totalThisMonth)
	database.DB.Model(&models.ActivityLog{}).
		Where("resource = ? AND created_at >= ?", "payments", today).
		Count(&paymentsMarkedToday)

	type bucket struct {
		Key   string
		Count int64
	}

	byResource := map[string]int64{}
	var resourceRows []bucket
	database.DB.Model(&models.ActivityLog{}).
		Select("resource as `key`, COUNT(*) as count").
		Group("resource").
		Find(&resourceRows)
	for _, row := range resourceRows {
		byResource[row.Key] = row.Count
	}

	byAction := map[string]int64{}
	var actionRows []bucket
	database.DB.Model(&models.ActivityLog{}).
		Select("action as `key`, COUNT(*) as count").
		Group("action").
		Find(&actionRows)
	for _, row := range actionRows {
		byAction[row.Key] = row.Count
	}

	type userActivity struct {
		UserID   uint   `json:"user_id"`
		Username string `json:"username"`
		Role     string `json:"role"`
		Count    int64  `json:"count"`
	}
	var topUsers []userActivity
	database.DB.Model(&models.ActivityLog{}).
		Select("activity_logs.user_id, users.username, users.role, COUNT(*) as count").
		Joins("LEFT JOIN users ON activity_logs.user_id = users.id").
		Where("activity_logs.created_at >= ?", thisMonth).
		Group("activity_logs.user_id, users.username, users.role").
		Order("count DESC").
		Limit(10).
		Find(&topUsers)

	var recentRows []models.ActivityLog
	database.DB.Preload("User").Order("created_at DESC").Limit(10).Find(&recentRows)
	recent := make([]LogEntry, len(recentRows))
	for i, row := range recentRows {
		recent[i] = toLogEntry(row)
	}

	return c.JSON(fiber.Map{
		"total":                 total,
		"total_today":           totalToday,
		"total_this_month":      totalThisMonth,
		"payments_marked_today": paymentsMarkedToday,
		"by_resource":           byResource,
		"by_action":             byAction,
		"top_users":             topUsers,
		"recent_activity":       recent,
	})
}

// GetLog retrieves a single log entry by ID
func (lc *LogController) GetLog(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid log ID"})
	}

	var row models.ActivityLog
	if err := database.DB.Preload("User").First(&row, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Log not found"})
		}
		logrus.WithError(err).Error("Failed to retrieve activity log")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve log"})
	}

	return c.JSON(toLogEntry(row))
}

// DeleteOldLogs removes logs older than the given number of days
func (lc *LogController) DeleteOldLogs(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid days parameter"})
	}

	cutoffDate := time.Now().AddDate(0, 0, -days)
	result := database.DB.Where("created_at < ?", cutoffDate).Delete(&models.ActivityLog{})
	if result.Error != nil {
		logrus.WithError(result.Error).Error("Failed to delete old logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete old logs"})
	}

	return c.JSON(fiber.Map{
		"message":       "Old logs deleted successfully",
		"deleted_count": result.RowsAffected,
		"cutoff_date":   cutoffDate,
	})
}

// ExportLogs streams the filtered audit trail as CSV
func (lc *LogController) ExportLogs(c *fiber.Ctx) error {
	query, err := logQueryFilters(c)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var rows []models.ActivityLog
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		logrus.WithError(err).Error("Failed to retrieve logs for export")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve logs for export"})
	}

	buf := new(bytes.Buffer)
	cw := csv.NewWriter(buf)
	cw.Write([]string{"ID", "User", "Role", "Action", "Resource", "Resource ID", "IP Address", "Created At", "Details"})
	for _, row := range rows {
		username, role := "", ""
		if row.User.ID > 0 {
			username = row.User.Username
			role = row.User.Role
		}
		details := ""
		if len(row.Details) > 0 {
			details = string(row.Details)
		}
		cw.Write([]string{
			strconv.FormatUint(uint64(row.ID), 10),
			username,
			role,
			row.Action,
			row.Resource,
			strconv.FormatUint(uint64(row.ResourceID), 10),
			row.IPAddress,
			row.CreatedAt.Format("2006-01-02 15:04:05"),
			details,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logrus.WithError(err).Error("Failed to write log export")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write export"})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=fee_activity_logs.csv")
	return c.Send(buf.Bytes())
}

// FlushCachedLogs drains the Redis write-behind queue into MySQL on demand
func (lc *LogController) FlushCachedLogs(c *fiber.Ctx) error {
	if err := services.NewLogArchiveService().FlushCachedLogsToDatabase(); err != nil {
		logrus.WithError(err).Error("Manual log flush failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to flush cached logs"})
	}
	return c.JSON(fiber.Map{"message": "Cached logs flushed to database"})
}

// GetArchives lists the zipped S3 archives of pruned audit history
func (lc *LogController) GetArchives(c *fiber.Ctx) error {
	archives, err := services.NewLogArchiveService().GetArchivedLogs()
	if err != nil {
		logrus.WithError(err).Error("Failed to list log archives")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list archives"})
	}
	return c.JSON(fiber.Map{"archives": archives})
}

// DownloadArchive streams one stored archive from S3
func (lc *LogController) DownloadArchive(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid archive ID"})
	}

	reader, fileName, err := services.NewLogArchiveService().DownloadArchivedLogs(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		logrus.WithError(err).Error("Failed to read archive from S3")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read archive"})
	}

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	return c.Send(data)
}
