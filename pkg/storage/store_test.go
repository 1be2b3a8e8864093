package storage

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEmbeddedSchemaMatchesQueries(t *testing.T) {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		t.Fatalf("Expected embedded schema, got %v", err)
	}
	ddl := string(schema)

	for _, table := range []string{"runs", "recommendations"} {
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("Expected schema to create table %s", table)
		}
	}

	// Every column the store reads or writes must exist in the schema.
	columns := []string{
		"strategy", "window_spec", "targets", "succeeded", "failed",
		"run_id", "namespace", "workload", "container",
		"current_cpu_request", "current_cpu_limit",
		"current_memory_request", "current_memory_limit",
		"cpu_request", "cpu_limit", "memory_request", "memory_limit",
		"confidence", "severity", "cpu_severity", "memory_severity",
		"cpu_clamped", "memory_clamped", "created_at",
	}
	for _, column := range columns {
		if !strings.Contains(ddl, column) {
			t.Errorf("Expected schema to define column %s", column)
		}
	}
}

func TestRunJSONRoundTrip(t *testing.T) {
	run := Run{
		ID:        "a2c0ffee-0000-0000-0000-000000000001",
		Strategy:  "ensemble",
		Window:    "7d",
		Targets:   12,
		Succeeded: 10,
		Failed:    2,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(run)
	if err != nil {
		t.Fatalf("Expected marshal to succeed, got %v", err)
	}

	var decoded Run
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Expected unmarshal to succeed, got %v", err)
	}
	if decoded != run {
		t.Errorf("Expected %+v, got %+v", run, decoded)
	}
}
