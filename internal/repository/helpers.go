package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// convertSurrealID converts a SurrealDB record ID (which may be a complex
// object) to its string form.
func convertSurrealID(id interface{}) string {
	if str, ok := id.(string); ok {
		return str
	}

	if rid, ok := id.(models.RecordID); ok {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}
	if rid, ok := id.(*models.RecordID); ok && rid != nil {
		return fmt.Sprintf("%s:%v", rid.Table, rid.ID)
	}

	// Map format: {"tb": "event", "id": "xyz"}
	if m, ok := id.(map[string]interface{}); ok {
		tb, _ := m["tb"].(string)
		switch inner := m["id"].(type) {
		case string:
			if tb != "" {
				return tb + ":" + inner
			}
			return inner
		case map[string]interface{}:
			if s, ok := inner["String"].(string); ok && tb != "" {
				return tb + ":" + s
			}
		}
	}

	return ""
}

// unwrapSingle navigates the SurrealDB response structure down to a single
// record map. Returns nil when the result holds no record.
func unwrapSingle(result interface{}) map[string]interface{} {
	if result == nil {
		return nil
	}

	if resp, ok := result.(map[string]interface{}); ok {
		if status, ok := resp["status"].(string); ok && status == "OK" {
			result = resp["result"]
		}
	}

	if arr, ok := result.([]interface{}); ok {
		if len(arr) == 0 {
			return nil
		}
		result = arr[0]
	}

	if data, ok := result.(map[string]interface{}); ok {
		return data
	}
	return nil
}

// unwrapList flattens a multi-statement query response into record maps.
func unwrapList(result []interface{}) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(result))
	for _, res := range result {
		if resp, ok := res.(map[string]interface{}); ok {
			if resultData, ok := resp["result"].([]interface{}); ok {
				for _, item := range resultData {
					if data, ok := item.(map[string]interface{}); ok {
						records = append(records, data)
					}
				}
				continue
			}
		}
		if data, ok := res.(map[string]interface{}); ok {
			records = append(records, data)
		}
	}
	return records
}

type createdRecord struct {
	ID        string
	CreatedOn time.Time
	UpdatedOn time.Time
}

// extractCreatedRecord pulls the record ID and timestamps out of a CREATE
// result. CREATE statements inside guarded transaction batches return their
// record as one of possibly several statement results; the last record map
// wins, since guards precede the write.
func extractCreatedRecord(result []interface{}) (*createdRecord, error) {
	records := unwrapList(result)
	var data map[string]interface{}
	for _, r := range records {
		if _, ok := r["id"]; ok {
			data = r
		}
	}
	if data == nil {
		return nil, errors.New("no created record in result")
	}

	record := &createdRecord{ID: convertSurrealID(data["id"])}
	if t := getTime(data, "created_on"); t != nil {
		record.CreatedOn = *t
	}
	if t := getTime(data, "updated_on"); t != nil {
		record.UpdatedOn = *t
	}
	return record, nil
}

// getString extracts a string value from a map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getStringPtr extracts an optional string value from a map
func getStringPtr(m map[string]interface{}, key string) *string {
	if v, ok := m[key].(string); ok && v != "" {
		return &v
	}
	return nil
}

// getInt extracts an int value from a map
func getInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case float32:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	}
	return 0
}

// getBool extracts a bool value from a map
func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

// getTime extracts a time value from a map
func getTime(m map[string]interface{}, key string) *time.Time {
	if v, ok := m[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	}
	if t, ok := m[key].(time.Time); ok {
		return &t
	}
	// SurrealDB CustomDateTime type
	if dt, ok := m[key].(models.CustomDateTime); ok {
		t := dt.Time
		return &t
	}
	if dt, ok := m[key].(*models.CustomDateTime); ok && dt != nil {
		t := dt.Time
		return &t
	}
	return nil
}

// getTimeSlice extracts a slice of time values from a map
func getTimeSlice(m map[string]interface{}, key string) []time.Time {
	arr, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	result := make([]time.Time, 0, len(arr))
	for _, item := range arr {
		wrapped := map[string]interface{}{"v": item}
		if t := getTime(wrapped, "v"); t != nil {
			result = append(result, *t)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
