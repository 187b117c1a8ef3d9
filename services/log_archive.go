package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"schoolfees_go/config"
	"schoolfees_go/database"
	"schoolfees_go/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const archiveAfterDays = 30

// LogArchiveService drains the Redis activity-log queue into MySQL and
// periodically moves stale rows into zipped S3 archives so the audit trail
// of fee mutations survives table pruning.
type LogArchiveService struct {
	redisClient *redis.Client
	awsConfig   aws.Config
	cron        *cron.Cron
}

// archiveEntry is one audit row as stored inside an archive file.
type archiveEntry struct {
	ID         uint           `json:"id"`
	UserID     uint           `json:"user_id"`
	Username   string         `json:"username,omitempty"`
	UserRole   string         `json:"user_role,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID uint           `json:"resource_id"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewLogArchiveService creates a new service instance
func NewLogArchiveService() *LogArchiveService {
	cfg, err := awscfg.LoadDefaultConfig(context.Background(), awscfg.WithRegion(config.AppConfig.AWSRegion))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load AWS config; archive uploads will fail until configured")
	}

	return &LogArchiveService{
		redisClient: database.GetRedisClient(),
		awsConfig:   cfg,
		cron:        cron.New(),
	}
}

// FlushCachedLogsToDatabase moves queued activity logs from Redis to MySQL.
// Only entries older than the 24h write-behind window are drained; recent
// ones stay cached for the live log views.
func (las *LogArchiveService) FlushCachedLogsToDatabase() error {
	if las.redisClient == nil {
		return fmt.Errorf("redis client not available")
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-24 * time.Hour)

	queued, err := las.redisClient.ZRangeByScore(ctx, "logs:queue", &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read log queue: %v", err)
	}
	if len(queued) == 0 {
		return nil
	}

	var flushed, failed int
	for _, key := range queued {
		if err := las.flushOne(ctx, key); err != nil {
			if err != redis.Nil {
				logrus.WithError(err).WithField("key", key).Error("Failed to flush cached activity log")
				failed++
			}
			continue
		}
		flushed++
	}

	logrus.WithFields(logrus.Fields{"flushed": flushed, "failed": failed}).Info("Drained activity log queue")
	return nil
}

func (las *LogArchiveService) flushOne(ctx context.Context, key string) error {
	payload, err := las.redisClient.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	var entry models.ActivityLog
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return err
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		return err
	}

	pipe := las.redisClient.Pipeline()
	pipe.Del(ctx, key)
	pipe.ZRem(ctx, "logs:queue", key)
	_, err = pipe.Exec(ctx)
	return err
}

// ArchiveOldLogs zips activity logs older than daysOld, uploads the archive
// to S3 and prunes the archived rows from MySQL.
func (las *LogArchiveService) ArchiveOldLogs(daysOld int) error {
	if daysOld < 7 {
		return fmt.Errorf("minimum archive age is 7 days")
	}

	cutoffDate := time.Now().AddDate(0, 0, -daysOld)

	entries, err := las.collectEntries(cutoffDate)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	fileName := fmt.Sprintf("fee-activity-%s.zip", cutoffDate.Format("2006-01-02"))
	zipBuffer, err := buildArchive(entries, fileName)
	if err != nil {
		return fmt.Errorf("failed to build archive: %v", err)
	}

	s3Key := fmt.Sprintf("activity-archives/%d/%02d/%s", cutoffDate.Year(), cutoffDate.Month(), fileName)
	if err := las.uploadToS3(s3Key, zipBuffer); err != nil {
		return fmt.Errorf("failed to upload archive to S3: %v", err)
	}

	result := database.DB.Where("created_at < ?", cutoffDate).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return fmt.Errorf("failed to prune archived logs: %v", result.Error)
	}

	meta := models.LogArchive{
		FileName:    fileName,
		S3Key:       s3Key,
		StartDate:   entries[0].CreatedAt,
		EndDate:     entries[len(entries)-1].CreatedAt,
		RecordCount: len(entries),
		FileSize:    int64(zipBuffer.Len()),
		Status:      "completed",
	}
	if err := database.DB.Create(&meta).Error; err != nil {
		logrus.WithError(err).Error("Failed to save archive metadata")
	}

	logrus.WithFields(logrus.Fields{
		"s3_key":  s3Key,
		"records": len(entries),
		"pruned":  result.RowsAffected,
	}).Info("Archived old activity logs")
	return nil
}

func (las *LogArchiveService) collectEntries(cutoffDate time.Time) ([]archiveEntry, error) {
	const batchSize = 1000
	var entries []archiveEntry

	for offset := 0; ; offset += batchSize {
		var logs []models.ActivityLog
		err := database.DB.
			Preload("User").
			Where("created_at < ?", cutoffDate).
			Order("created_at").
			Limit(batchSize).
			Offset(offset).
			Find(&logs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to fetch logs for archiving: %v", err)
		}
		if len(logs) == 0 {
			break
		}

		for _, log := range logs {
			entry := archiveEntry{
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
				entry.Username = log.User.Username
				entry.UserRole = log.User.Role
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// buildArchive packs the entries as JSON plus a CSV the office can open,
// with a summary of how much fee activity the archive covers.
func buildArchive(entries []archiveEntry, fileName string) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	byResource := map[string]int{}
	byAction := map[string]int{}
	for _, e := range entries {
		byResource[e.Resource]++
		byAction[e.Action]++
	}

	summaryFile, err := zw.Create("summary.json")
	if err != nil {
		return nil, err
	}
	summary := map[string]any{
		"file_name":    fileName,
		"created_at":   time.Now().UTC(),
		"record_count": len(entries),
		"date_range": map[string]any{
			"start": entries[0].CreatedAt,
			"end":   entries[len(entries)-1].CreatedAt,
		},
		"by_resource": byResource,
		"by_action":   byAction,
		"description": "Archived audit trail of student and payment mutations",
	}
	enc := json.NewEncoder(summaryFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return nil, err
	}

	jsonFile, err := zw.Create("activity_logs.json")
	if err != nil {
		return nil, err
	}
	enc = json.NewEncoder(jsonFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}

	csvFile, err := zw.Create("activity_logs.csv")
	if err != nil {
		return nil, err
	}
	cw := csv.NewWriter(csvFile)
	if err := cw.Write([]string{"ID", "User", "Role", "Action", "Resource", "Resource ID", "IP Address", "Created At", "Details"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		details := ""
		if e.Details != nil {
			if raw, err := json.Marshal(e.Details); err == nil {
				details = string(raw)
			}
		}
		record := []string{
			strconv.FormatUint(uint64(e.ID), 10),
			e.Username,
			e.UserRole,
			e.Action,
			e.Resource,
			strconv.FormatUint(uint64(e.ResourceID), 10),
			e.IPAddress,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			details,
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (las *LogArchiveService) uploadToS3(key string, data *bytes.Buffer) error {
	if las.awsConfig.Region == "" {
		return fmt.Errorf("AWS not configured")
	}

	s3Client := s3.NewFromConfig(las.awsConfig)
	bucketName := config.AppConfig.S3BucketName

	_, err := s3Client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket:      &bucketName,
		Key:         &key,
		Body:        bytes.NewReader(data.Bytes()),
		ContentType: aws.String("application/zip"),
	})
	return err
}

func (las *LogArchiveService) downloadFromS3(key string) (io.ReadCloser, error) {
	if las.awsConfig.Region == "" {
		return nil, fmt.Errorf("AWS not configured")
	}

	s3Client := s3.NewFromConfig(las.awsConfig)
	bucketName := config.AppConfig.S3BucketName

	result, err := s3Client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: &bucketName,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	return result.Body, nil
}

// GetArchivedLogs lists archive metadata, newest first
func (las *LogArchiveService) GetArchivedLogs() ([]models.LogArchive, error) {
	var archives []models.LogArchive
	if err := database.DB.Order("created_at DESC").Find(&archives).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve archives: %v", err)
	}
	return archives, nil
}

// DownloadArchivedLogs streams a stored archive from S3
func (las *LogArchiveService) DownloadArchivedLogs(archiveID uint) (io.ReadCloser, string, error) {
	var archive models.LogArchive
	if err := database.DB.First(&archive, archiveID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", fmt.Errorf("archive not found")
		}
		return nil, "", fmt.Errorf("failed to retrieve archive: %v", err)
	}

	reader, err := las.downloadFromS3(archive.S3Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download archive from S3: %v", err)
	}
	return reader, archive.FileName, nil
}

// StartLogMaintenanceScheduler flushes the queue hourly and archives stale
// rows nightly, after the receptionist's working hours.
func (las *LogArchiveService) StartLogMaintenanceScheduler() {
	if _, err := las.cron.AddFunc("@hourly", func() {
		if err := las.FlushCachedLogsToDatabase(); err != nil {
			logrus.WithError(err).Warn("Activity log flush failed")
		}
	}); err != nil {
		logrus.WithError(err).Error("Failed to schedule activity log flush")
	}
	if _, err := las.cron.AddFunc("0 3 * * *", func() {
		if err := las.ArchiveOldLogs(archiveAfterDays); err != nil {
			logrus.WithError(err).Warn("Activity log archive failed")
		}
	}); err != nil {
		logrus.WithError(err).Error("Failed to schedule activity log archive")
	}
	las.cron.Start()
}
