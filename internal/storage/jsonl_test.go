package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/model"
)

func TestJsonlJournalAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trades.jsonl")
	journal := NewJsonlJournal(path)

	var pool account.Key
	pool[0] = 1
	record := model.TradeRecord{
		Pool:        pool,
		Direction:   "sell_base",
		AmountIn:    100,
		AmountOut:   195,
		TradeFee:    5,
		MarketPrice: "2",
		Slot:        42,
		ExecutedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := journal.PutTradeBatch([]model.TradeRecord{record}); err != nil {
		t.Fatalf("PutTradeBatch: %v", err)
	}
	record.Slot = 43
	if err := journal.PutTradeBatch([]model.TradeRecord{record}); err != nil {
		t.Fatalf("PutTradeBatch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	var got []model.TradeRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var r model.TradeRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].Slot != 42 || got[1].Slot != 43 {
		t.Fatalf("slots = %d/%d, want 42/43", got[0].Slot, got[1].Slot)
	}
	if got[0].Pool != pool || got[0].AmountOut != 195 {
		t.Fatalf("record round trip mismatch: %+v", got[0])
	}
}

func TestJsonlJournalEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.jsonl")
	journal := NewJsonlJournal(path)
	if err := journal.PutTradeBatch(nil); err != nil {
		t.Fatalf("PutTradeBatch(nil): %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty batch created file: %v", err)
	}
}
