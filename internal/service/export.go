package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"collections-ledger/internal/clients"
	"collections-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type ExportStatus struct {
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	AgentID   string    `json:"agent_id"`
	AccountID string    `json:"account_id"`
	Fields    []string  `json:"fields"`
	Progress  float64   `json:"progress"`
	FileURL   *string   `json:"file_url"`
	Created   time.Time `json:"created_at"`
}

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

type EventColumn struct {
	Header string
	Value  func(ev domain.ActivityEvent) any
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func timePtr(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.Format("2006-01-02 15:04:05")
}

var eventColumns = map[string]EventColumn{
	"occurred_at": {
		Header: "Occurred At",
		Value:  func(ev domain.ActivityEvent) any { return ev.OccurredAt.Format("2006-01-02 15:04:05") },
	},
	"module": {
		Header: "Module",
		Value:  func(ev domain.ActivityEvent) any { return string(ev.Module) },
	},
	"action": {
		Header: "Action",
		Value:  func(ev domain.ActivityEvent) any { return ev.Action },
	},
	"actor": {
		Header: "Actor",
		Value:  func(ev domain.ActivityEvent) any { return ev.Actor },
	},
	"status": {
		Header: "Status",
		Value:  func(ev domain.ActivityEvent) any { return string(ev.Status) },
	},
	"details": {
		Header: "Details",
		Value:  func(ev domain.ActivityEvent) any { return ev.Details },
	},
	"correlation_key": {
		Header: "Correlation Key",
		Value:  func(ev domain.ActivityEvent) any { return strPtr(ev.CorrelationKey) },
	},
	"reply_status": {
		Header: "Reply Status",
		Value:  func(ev domain.ActivityEvent) any { return strPtr(ev.ReplyStatus) },
	},
	"reply_at": {
		Header: "Reply At",
		Value:  func(ev domain.ActivityEvent) any { return timePtr(ev.ReplyAt) },
	},
	"reply_content": {
		Header: "Reply Content",
		Value:  func(ev domain.ActivityEvent) any { return strPtr(ev.ReplyContent) },
	},
	"payload": {
		Header: "Payload (JSON)",
		Value: func(ev domain.ActivityEvent) any {
			if ev.Payload == nil {
				return ""
			}
			raw, err := domain.EncodePayload(ev.Payload)
			if err != nil {
				return ""
			}
			return string(raw)
		},
	},
}

// TimelineExportService builds XLSX snapshots of an account timeline in the
// background, keeps their status in Redis, and pushes progress over the
// websocket hub.
type TimelineExportService struct {
	timeline *TimelineService
	accounts AccountStore
	redis    *clients.RedisClient
	storage  *clients.StorageClient
	s3       *clients.S3Client
	ws       *clients.WebSocketClient
}

func NewTimelineExportService(
	timeline *TimelineService,
	accounts AccountStore,
	redis *clients.RedisClient,
	storage *clients.StorageClient,
	s3 *clients.S3Client,
	ws *clients.WebSocketClient,
) *TimelineExportService {
	return &TimelineExportService{
		timeline: timeline,
		accounts: accounts,
		redis:    redis,
		storage:  storage,
		s3:       s3,
		ws:       ws,
	}
}

func (s *TimelineExportService) saveExportStatus(ctx context.Context, st *ExportStatus) error {
	if s.redis == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}

	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

func (s *TimelineExportService) StartTimelineExport(
	ctx context.Context,
	accountID string,
	selected []string,
	agentID string,
) (string, error) {
	if len(selected) == 0 {
		selected = []string{
			"occurred_at",
			"module",
			"action",
			"actor",
			"status",
			"details",
		}
	}

	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return "", err
	}

	exportID := fmt.Sprintf("exports:%s", uuid.NewString())

	status := &ExportStatus{
		Key:       exportID,
		Type:      "timeline",
		AgentID:   agentID,
		AccountID: accountID,
		Fields:    selected,
		Progress:  0,
		FileURL:   nil,
		Created:   time.Now(),
	}

	_ = s.saveExportStatus(ctx, status)

	go s.runTimelineExport(context.Background(), status, selected)

	return exportID, nil
}

func (s *TimelineExportService) runTimelineExport(ctx context.Context, status *ExportStatus, selected []string) {
	events, err := s.timeline.GetTimeline(ctx, status.AccountID)
	if err != nil {
		log.Printf("[EXPORT] timeline read error: %v", err)
		if s.ws != nil {
			_ = s.ws.NotifyExportFailed(ctx, status.AgentID, status.Key, "failed to read timeline")
		}
		return
	}

	var cols []EventColumn
	for _, key := range selected {
		col, ok := eventColumns[key]
		if !ok {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return
	}

	f := excelize.NewFile()
	sheet := "Timeline"
	f.SetSheetName(f.GetSheetName(0), sheet)

	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: fmt.Sprintf("agent_%s", status.AgentID),
	})

	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	rowIdx := 2
	for _, ev := range events {
		for colIdx, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			_ = f.SetCellValue(sheet, cell, col.Value(ev))
		}
		rowIdx++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		log.Printf("[EXPORT] xlsx write error: %v", err)
		return
	}
	data := buf.Bytes()

	fileName := fmt.Sprintf("timeline_%s_%s.xlsx", status.AccountID, time.Now().Format("20060102_150405"))

	status.Progress = 95
	_ = s.saveExportStatus(ctx, status)
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.AgentID, status.Key, 95, "uploading")
	}

	var url string
	if s.s3 != nil {
		key, err := s.s3.UploadXLSX(ctx, fileName, data)
		if err != nil {
			log.Printf("[EXPORT] s3 upload error: %v", err)
			return
		}
		url, err = s.s3.GetTemporaryURL(ctx, key, 48*time.Hour)
		if err != nil {
			log.Printf("[EXPORT] s3 presign error: %v", err)
			return
		}
	} else if s.storage != nil {
		saved, err := s.storage.Save(ctx, fileName, data)
		if err != nil {
			log.Printf("[EXPORT] storage save error: %v", err)
			return
		}
		url = s.storage.GetURL(saved)
	} else {
		return
	}

	status.FileURL = &url
	status.Progress = 100
	_ = s.saveExportStatus(ctx, status)

	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.AgentID, status.Key, 100, "ready")
		_ = s.ws.NotifyExportComplete(ctx, status.AgentID, status.Key, url, fileName)
	}
}

func (s *TimelineExportService) GetExports(ctx context.Context, agentID string) ([]interface{}, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.redis.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key)
		if err != nil {
			continue
		}

		var status ExportStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}

		if status.AgentID == agentID {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	var exports []interface{}
	for _, status := range statuses {
		exports = append(exports, exportMap(status))
	}

	return exports, nil
}

func (s *TimelineExportService) GetExport(ctx context.Context, exportID string, agentID string) (interface{}, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.redis.Get(ctx, exportID)
	if err != nil {
		return nil, errors.New("export not found")
	}

	var status ExportStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}

	if status.AgentID != agentID {
		return nil, errors.New("export not found")
	}

	return exportMap(status), nil
}

func exportMap(status ExportStatus) map[string]interface{} {
	return map[string]interface{}{
		"key":        status.Key,
		"type":       status.Type,
		"agent_id":   status.AgentID,
		"account_id": status.AccountID,
		"fields":     status.Fields,
		"progress":   status.Progress,
		"file_url":   status.FileURL,
		"created_at": humanizeAgo(status.Created),
	}
}

func humanizeAgo(t time.Time) string {
	now := time.Now()
	if t.After(now) {
		return "just now"
	}

	diff := now.Sub(t)
	minutes := int(diff.Minutes())
	if minutes < 1 {
		return "just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d h ago", hours)
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%d d ago", days)
	}
	return t.Format("2006-01-02 15:04")
}
