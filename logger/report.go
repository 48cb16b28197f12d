package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type componentStat struct {
	warns  int64
	errors int64
}

var (
	snapshotsLoaded int64
	rowsSolved      int64
	solveFailures   int64
	exportsWritten  int64
	components      sync.Map // map[string]*componentStat
)

func componentCounters(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&componentCounters(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&componentCounters(component).errors, 1)
}

// IncrementSnapshotLoad counts one daily snapshot read from disk.
func IncrementSnapshotLoad() {
	atomic.AddInt64(&snapshotsLoaded, 1)
}

// IncrementRowsSolved counts option rows that produced a converging IV.
func IncrementRowsSolved(n int) {
	atomic.AddInt64(&rowsSolved, int64(n))
}

// IncrementSolveFailures counts option rows whose IV solve was rejected.
func IncrementSolveFailures(n int) {
	atomic.AddInt64(&solveFailures, int64(n))
}

// IncrementExportsWritten counts result artifacts uploaded by the writer.
func IncrementExportsWritten() {
	atomic.AddInt64(&exportsWritten, 1)
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of run statistics. It exposes the
// internal startReport function for use by other packages.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	componentData := map[string]map[string]int64{}
	components.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*componentStat)
		componentData[name] = map[string]int64{
			"warns":  atomic.LoadInt64(&cs.warns),
			"errors": atomic.LoadInt64(&cs.errors),
		}
		return true
	})

	loaded := atomic.LoadInt64(&snapshotsLoaded)
	solved := atomic.LoadInt64(&rowsSolved)
	failed := atomic.LoadInt64(&solveFailures)
	exports := atomic.LoadInt64(&exportsWritten)

	fields := Fields{
		"snapshots_loaded": loaded,
		"rows_solved":      solved,
		"solve_failures":   failed,
		"exports_written":  exports,
		"goroutines":       runtime.NumGoroutine(),
		"components":       componentData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("Txo-SnapshotsLoaded"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(loaded))},
		{MetricName: aws.String("Txo-RowsSolved"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(solved))},
		{MetricName: aws.String("Txo-SolveFailures"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(failed))},
		{MetricName: aws.String("Txo-ExportsWritten"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(exports))},
	}

	for name, stats := range componentData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Txo-ComponentWarns"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Component"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["warns"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Txo-ComponentErrors"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Component"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["errors"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
