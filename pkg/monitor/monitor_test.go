package monitor

import (
	"testing"
	"time"

	"github.com/automenta/trex-autonomy/pkg/model"
	"github.com/automenta/trex-autonomy/pkg/stats"
)

type captureSink struct {
	got []TickData
}

func (c *captureSink) RecordTickData(d TickData) error {
	c.got = append(c.got, d)
	return nil
}

func TestAppendAndRead(t *testing.T) {
	m := New()
	for i := 0; i < 3; i++ {
		m.AddTickData(TickData{
			Tick: model.Tick(5 + i),
			Sync: stats.Usage{Wall: time.Duration(i) * time.Millisecond},
		})
	}

	data := m.Data()
	if len(data) != 3 {
		t.Fatalf("got %d records, want 3", len(data))
	}
	for i, d := range data {
		if d.Tick != model.Tick(5+i) {
			t.Fatalf("record %d: got tick %d, want %d", i, d.Tick, 5+i)
		}
	}
}

func TestDataReturnsCopy(t *testing.T) {
	m := New()
	m.AddTickData(TickData{Tick: 1})
	d := m.Data()
	d[0].Tick = 99
	if m.Data()[0].Tick != 1 {
		t.Fatal("Data exposed internal storage")
	}
}

func TestSinkReceivesAppends(t *testing.T) {
	m := New()
	sink := &captureSink{}
	m.SetSink(sink)
	m.AddTickData(TickData{Tick: 7})
	if len(sink.got) != 1 || sink.got[0].Tick != 7 {
		t.Fatalf("sink got %v, want one record at tick 7", sink.got)
	}
}
