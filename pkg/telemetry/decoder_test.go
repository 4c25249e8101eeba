//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package telemetry

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/testsupport/basedata"
	"github.com/forzalog/lap-engine-go/testsupport/wire"
)

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		want    model.WireLayout
		wantErr error
	}{
		{name: "empty", size: 0, wantErr: ErrTooShort},
		{name: "one byte short of fixed", size: 231, wantErr: ErrTooShort},
		{name: "exact fixed section", size: 232, want: model.LayoutFixedOnly},
		{name: "fixed with slack", size: 299, want: model.LayoutFixedOnly},
		{name: "extended lower bound", size: 300, want: model.LayoutExtendedNoGap},
		{name: "dash datagram", size: wire.DashSize, want: model.LayoutExtendedNoGap},
		{name: "extended upper bound", size: 323, want: model.LayoutExtendedNoGap},
		{name: "gap lower bound", size: 324, want: model.LayoutExtendedWithGap},
		{name: "horizon full datagram", size: wire.HorizonFullSize, want: model.LayoutExtendedWithGap},
		{name: "oversized", size: 1000, want: model.LayoutExtendedWithGap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LayoutFor(tt.size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtendedOffset(t *testing.T) {
	assert.Equal(t, -1, ExtendedOffset(model.LayoutFixedOnly))
	assert.Equal(t, 232, ExtendedOffset(model.LayoutExtendedNoGap))
	assert.Equal(t, 244, ExtendedOffset(model.LayoutExtendedWithGap))
}

func TestDecode_FixedOnly(t *testing.T) {
	src := basedata.SampleTelemetry()
	got, err := Decode(wire.Encode(src, wire.SledSize))
	require.NoError(t, err)

	assert.False(t, got.HasExtended())
	assert.Equal(t, src.IsRaceOn, got.IsRaceOn)
	assert.Equal(t, src.TimestampMS, got.TimestampMS)
	assert.Equal(t, src.Yaw, got.Yaw)
	assert.Equal(t, src.SuspTravelRR, got.SuspTravelRR)
	assert.Equal(t, src.CarOrdinal, got.CarOrdinal)
	assert.Equal(t, src.NumCylinders, got.NumCylinders)
	// nothing of the extended section may leak into the sample
	assert.Zero(t, got.PosX)
	assert.Zero(t, got.Speed)
	assert.Zero(t, got.LapNumber)
	assert.False(t, got.HasTireWear)
}

// the same logical state must decode identically from a dash datagram
// (extended at 232) and a horizon datagram (extended at 244)
func TestDecode_VariantEquivalence(t *testing.T) {
	src := basedata.SampleTelemetry()

	dash, err := Decode(wire.Encode(src, wire.DashSize))
	require.NoError(t, err)
	horizon, err := Decode(wire.Encode(src, wire.HorizonSize))
	require.NoError(t, err)

	assert.Equal(t, model.LayoutExtendedNoGap, dash.Layout)
	assert.Equal(t, model.LayoutExtendedWithGap, horizon.Layout)
	if diff := cmp.Diff(dash, horizon,
		cmpopts.IgnoreFields(model.TelemetrySample{}, "Layout")); diff != "" {
		t.Errorf("samples differ (-dash +horizon):\n%s", diff)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	src := basedata.SampleTelemetry()
	got, err := Decode(wire.Encode(src, wire.HorizonFullSize))
	require.NoError(t, err)

	want := basedata.SampleTelemetry()
	want.Layout = model.LayoutExtendedWithGap
	want.HasTireWear = true
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sample mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_TireBlock(t *testing.T) {
	src := basedata.SampleTelemetry()
	tests := []struct {
		name        string
		size        int
		hasTireWear bool
	}{
		{name: "horizon without tire block", size: wire.HorizonSize, hasTireWear: false},
		{name: "one byte short of tire block", size: wire.HorizonFullSize - 1, hasTireWear: false},
		{name: "horizon with tire block", size: wire.HorizonFullSize, hasTireWear: true},
		{name: "dash variant reaching tire block", size: 332, hasTireWear: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(wire.Encode(src, tt.size))
			require.NoError(t, err)
			assert.Equal(t, tt.hasTireWear, got.HasTireWear)
			if tt.hasTireWear {
				assert.Equal(t, src.TireWearFL, got.TireWearFL)
				assert.Equal(t, src.TireWearRR, got.TireWearRR)
				assert.Equal(t, src.TrackOrdinal, got.TrackOrdinal)
			} else {
				assert.Zero(t, got.TireWearFL)
				assert.Zero(t, got.TrackOrdinal)
			}
		})
	}
}

// length class promises an extended section the buffer cannot hold
func TestDecode_Truncated(t *testing.T) {
	src := basedata.SampleTelemetry()
	for _, size := range []int{300, 305, 310} {
		got, err := Decode(wire.Encode(src, size))
		assert.Nil(t, got, "size %d", size)
		assert.ErrorIs(t, err, ErrTruncated, "size %d", size)
	}
}

func TestDecode_TooShort(t *testing.T) {
	for _, size := range []int{0, 1, 100, 231} {
		got, err := Decode(make([]byte, size))
		assert.Nil(t, got, "size %d", size)
		assert.ErrorIs(t, err, ErrTooShort, "size %d", size)
	}
}

// every buffer length must either decode or fail cleanly
func TestDecode_NeverPanics(t *testing.T) {
	for size := 0; size <= 400; size++ {
		buf := make([]byte, size)
		for i := range buf {
			buf[i] = byte(i*31 + 7)
		}
		got, err := Decode(buf)
		if err != nil {
			assert.Nil(t, got, "size %d", size)
			assert.True(t,
				errors.Is(err, ErrTooShort) || errors.Is(err, ErrTruncated),
				"size %d: unexpected error %v", size, err)
		} else {
			require.NotNil(t, got, "size %d", size)
		}
	}
}
