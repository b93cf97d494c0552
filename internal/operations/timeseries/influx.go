// Package timeseries mirrors account snapshots and closed trades into InfluxDB
// for dashboards.
package timeseries

import (
	"context"
	"fmt"

	"CryptoSignalBot/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

const (
	measurementSnapshot = "account_snapshot"
	measurementTrade    = "closed_trade"
)

type Exporter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewExporter(url, token, org, bucket string) (*Exporter, error) {
	if url == "" || org == "" || bucket == "" {
		return nil, fmt.Errorf("influx url, org and bucket are required")
	}
	client := influxdb2.NewClient(url, token)
	return &Exporter{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		bucket:   bucket,
		org:      org,
	}, nil
}

// WriteSnapshot stores one equity point.
func (e *Exporter) WriteSnapshot(ctx context.Context, s models.AccountSnapshot) error {
	p := influxdb2.NewPointWithMeasurement(measurementSnapshot).
		AddTag("mode", s.Mode).
		AddField("total_equity", s.TotalEquity).
		AddField("available_balance", s.AvailableBalance).
		AddField("unrealized", s.Unrealized).
		SetTime(s.Timestamp)
	return e.writeAPI.WritePoint(ctx, p)
}

// WriteClosedTrade stores the outcome of a closed position.
func (e *Exporter) WriteClosedTrade(ctx context.Context, p models.Position) error {
	if p.ClosedAt == nil {
		return fmt.Errorf("position %d has no close time", p.ID)
	}
	point := influxdb2.NewPointWithMeasurement(measurementTrade).
		AddTag("symbol", p.Symbol).
		AddTag("side", p.Side).
		AddTag("exit_reason", p.ExitReason).
		AddTag("mode", p.Mode).
		AddField("position_id", int64(p.ID)).
		AddField("entry_price", p.EntryPrice).
		AddField("exit_price", p.ExitPrice).
		AddField("quantity", p.Quantity).
		AddField("realized_pnl", p.RealizedPnl).
		AddField("realized_pnl_percent", p.RealizedPnlPercent).
		AddField("holding_seconds", p.ClosedAt.Sub(p.OpenedAt).Seconds()).
		SetTime(*p.ClosedAt)
	return e.writeAPI.WritePoint(ctx, point)
}

func (e *Exporter) Close() {
	e.client.Close()
}
