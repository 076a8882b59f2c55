package statementstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{
	"institution": "chase",
	"period_start": "2024-01-01",
	"period_end": "2024-01-31",
	"opening_balance": 1000,
	"closing_balance": 1500,
	"currency": "USD",
	"transactions": [
		{"id": "tx-1", "date": "2024-01-15", "description": "Payroll Deposit", "credit": 500, "balance": 1500}
	]
}`

func TestDecodeStatement(t *testing.T) {
	s, err := DecodeStatement([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("DecodeStatement failed: %v", err)
	}

	if s.Institution != "chase" {
		t.Errorf("Expected institution chase, got %q", s.Institution)
	}
	if len(s.Transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(s.Transactions))
	}
	tx := s.Transactions[0]
	if tx.Credit == nil || *tx.Credit != 500 {
		t.Errorf("Expected credit 500, got %v", tx.Credit)
	}
	if tx.Debit != nil {
		t.Errorf("Expected absent debit to stay nil, got %v", *tx.Debit)
	}
}

func TestDecodeStatementInvalidJSON(t *testing.T) {
	if _, err := DecodeStatement([]byte("{not json")); err == nil {
		t.Error("Expected error for malformed JSON, got nil")
	}
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://statements/2024/jan.json", "statements", "2024/jan.json", false},
		{"gs://bucket/object", "bucket", "object", false},
		{"gs://bucket", "", "", true},
		{"gs:///object", "", "", true},
		{"/local/path.json", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI(%q) = %q, %q; want %q, %q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	s, err := NewFileLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.ClosingBalance != 1500 {
		t.Errorf("Expected closing balance 1500, got %v", s.ClosingBalance)
	}
}

func TestFileLoaderMissingFile(t *testing.T) {
	if _, err := NewFileLoader().Load(context.Background(), "/no/such/file.json"); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestForURI(t *testing.T) {
	if _, ok := ForURI("gs://bucket/object").(*GCSLoader); !ok {
		t.Error("Expected GCSLoader for gs:// URI")
	}
	if _, ok := ForURI("/tmp/statement.json").(*FileLoader); !ok {
		t.Error("Expected FileLoader for local path")
	}
}
