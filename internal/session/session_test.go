package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"geo-cluster/internal/kcenter"
	"geo-cluster/internal/lloyd"
	"geo-cluster/internal/playback"
	"geo-cluster/internal/points"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	var pts []points.Point
	for i := 0; i < 12; i++ {
		pts = append(pts, points.Point{X: float64(10 + (i%4)*60), Y: float64(20 + (i/4)*70), Cluster: points.Unassigned})
	}
	return Options{
		Points:          pts,
		LloydK:          3,
		NaiveK:          2,
		SampleSize:      6,
		SampleSeed:      1,
		MaxCombinations: 1000,
		Interval:        5 * time.Millisecond,
		Width:           800,
		Height:          600,
		Seed:            42,
	}
}

func TestNew_InitializesBothEngines(t *testing.T) {
	s := New("t", testOptions())
	defer s.Close()

	lv := s.LloydView()
	assert.Equal(t, EngineLloyd, lv.Engine)
	assert.Equal(t, playback.Idle, lv.State)
	assert.Equal(t, 12, strings.Count(lv.SVG, `class="point"`))
	assert.Equal(t, 3, strings.Count(lv.SVG, `class="center"`))

	nv := s.NaiveView()
	rep := nv.Report.(kcenter.StepReport)
	assert.Equal(t, 0, rep.Step)
	assert.Equal(t, 15, rep.Total)
	assert.Equal(t, 6, strings.Count(nv.SVG, `class="point"`))
	assert.Equal(t, 0, strings.Count(nv.SVG, `class="center"`))
	assert.Contains(t, nv.Status, "best: ∞")
}

func TestNew_ClampsKToPointCount(t *testing.T) {
	o := testOptions()
	o.LloydK = 50
	o.NaiveK = 50
	s := New("t", o)
	defer s.Close()
	assert.Equal(t, 12, strings.Count(s.LloydView().SVG, `class="center"`))
	assert.Equal(t, 1, s.NaiveView().Report.(kcenter.StepReport).Total)
}

func TestLloyd_StepAndReset(t *testing.T) {
	s := New("t", testOptions())
	defer s.Close()

	v, err := s.LloydStep()
	require.NoError(t, err)
	assert.Equal(t, 1, v.Report.(lloyd.StepReport).Iteration)

	_, err = s.LloydReset(0)
	assert.ErrorIs(t, err, lloyd.ErrInvalidK)

	v, err = s.LloydReset(4)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(v.SVG, `class="center"`))
	assert.Equal(t, 0, v.Report.(lloyd.StepReport).Iteration)
}

func TestLloyd_PlayPushesFrames(t *testing.T) {
	s := New("t", testOptions())
	defer s.Close()
	ch, cancel := s.Subscribe()
	defer cancel()

	_, ok := s.LloydPlay()
	require.True(t, ok)
	_, ok = s.LloydPlay()
	assert.False(t, ok)

	ticks := 0
	deadline := time.After(2 * time.Second)
	for ticks < 2 {
		select {
		case v := <-ch:
			if v.Op == "tick" {
				ticks++
				assert.Equal(t, EngineLloyd, v.Engine)
			}
		case <-deadline:
			t.Fatal("no tick frames")
		}
	}
	v := s.LloydPause()
	assert.Equal(t, playback.Idle, v.State)
}

func TestNaive_StepThroughToExhaustion(t *testing.T) {
	s := New("t", testOptions())
	defer s.Close()

	var v View
	var err error
	for i := 0; i < 15; i++ {
		v, err = s.NaiveStep()
		require.NoError(t, err)
	}
	rep := v.Report.(kcenter.StepReport)
	assert.True(t, rep.Done)
	assert.Equal(t, 15, rep.Step)
	assert.Equal(t, 1, strings.Count(v.SVG, `class="cover"`))

	// 再走一步：序列已耗尽，状态不变
	v2, err := s.NaiveStep()
	require.NoError(t, err)
	assert.Equal(t, rep, v2.Report.(kcenter.StepReport))
}

func TestNaive_PlayAutoStops(t *testing.T) {
	s := New("t", testOptions())
	defer s.Close()
	_, ok := s.NaivePlay()
	require.True(t, ok)
	require.Eventually(t, func() bool { return s.NaiveView().State == playback.Idle }, 3*time.Second, 5*time.Millisecond)
	assert.True(t, s.NaiveView().Report.(kcenter.StepReport).Done)
}

func TestNaive_SolveMatchesStepping(t *testing.T) {
	a := New("a", testOptions())
	defer a.Close()
	b := New("b", testOptions())
	defer b.Close()

	sv, err := a.NaiveSolve(context.Background(), 2)
	require.NoError(t, err)
	for i := 0; i < 15; i++ {
		_, err = b.NaiveStep()
		require.NoError(t, err)
	}
	assert.Equal(t, b.NaiveView().Report.(kcenter.StepReport).Best, sv.Report.(kcenter.StepReport).Best)

	_, err = a.NaiveSolve(context.Background(), 7)
	assert.ErrorIs(t, err, kcenter.ErrInvalidK)
}

func TestNaive_InitRejectsTooLarge(t *testing.T) {
	o := testOptions()
	o.SampleSize = 12
	o.MaxCombinations = 100
	s := New("t", o)
	defer s.Close()
	_, err := s.NaiveInit(4)
	assert.ErrorIs(t, err, kcenter.ErrSearchTooLarge)
}

func TestSubscribe_CancelAndClose(t *testing.T) {
	s := New("t", testOptions())
	ch, cancel := s.Subscribe()
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	ch2, _ := s.Subscribe()
	s.Close()
	_, open = <-ch2
	assert.False(t, open)
}

func TestClose_StopsFurtherPlayback(t *testing.T) {
	s := New("t", testOptions())
	s.Close()

	v, started := s.LloydPlay()
	assert.False(t, started)
	assert.Equal(t, playback.Idle, v.State)
	_, started = s.NaivePlay()
	assert.False(t, started)

	_, err := s.LloydStep()
	assert.ErrorIs(t, err, playback.ErrClosed)
	_, err = s.NaiveSolve(context.Background(), 2)
	assert.ErrorIs(t, err, playback.ErrClosed)

	iter := s.lloyd.Iteration()
	time.Sleep(30 * time.Millisecond)
	s.lloydCtl.Do(func(playback.State) { assert.Equal(t, iter, s.lloyd.Iteration()) })
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(time.Minute, testOptions)
	s := r.Create()
	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get("missing")
	assert.False(t, ok)

	r.Delete(s.ID)
	assert.Equal(t, 0, r.Len())
	r.Close()
}
