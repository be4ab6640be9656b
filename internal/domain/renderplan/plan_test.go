package renderplan

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dkotenko/clipcut/internal/domain/framing"
	"github.com/dkotenko/clipcut/internal/ports"
	"github.com/dkotenko/clipcut/internal/types"
)

func sec(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

func clip(start, end float64, title string) types.ClipProposal {
	return types.ClipProposal{Start: sec(start), End: sec(end), Title: title}
}

func staticCrop() []framing.CropWindow {
	return []framing.CropWindow{framing.Static(1920, 1080, sec(10))}
}

func params(silences []ports.SilenceInterval) Params {
	return Params{
		Clip:               clip(10, 40, "My Clip"),
		Crop:               staticCrop(),
		Silence:            silences,
		Speed:              1.2,
		MinKeep:            50 * time.Millisecond,
		MaxRemovedFraction: 0.8,
	}
}

func TestBuild_NoSilence(t *testing.T) {
	t.Parallel()

	p := Build(params(nil))
	if len(p.Cuts) != 0 || p.SilenceSkipped {
		t.Fatalf("unexpected cuts without silence: %+v", p)
	}
	if p.Profile.Hardware {
		t.Fatalf("expected software profile by default")
	}
}

func TestBuild_CutsAreComplementOfSilence(t *testing.T) {
	t.Parallel()

	p := Build(params([]ports.SilenceInterval{
		{Start: sec(5), End: sec(8)},
		{Start: sec(20), End: sec(22)},
	}))

	want := []ports.SilenceInterval{
		{Start: 0, End: sec(5)},
		{Start: sec(8), End: sec(20)},
		{Start: sec(22), End: sec(30)},
	}
	if !reflect.DeepEqual(p.Cuts, want) {
		t.Fatalf("Cuts = %v, want %v", p.Cuts, want)
	}
}

func TestBuild_RemovalGuard(t *testing.T) {
	t.Parallel()

	// Silence covering 28s of a 30s clip: a misconfigured noise floor must
	// not produce a near-empty output.
	p := Build(params([]ports.SilenceInterval{{Start: sec(1), End: sec(29)}}))
	if !p.SilenceSkipped {
		t.Fatalf("expected removal guard to fire")
	}
	if len(p.Cuts) != 0 {
		t.Fatalf("guard fired but cuts remain: %v", p.Cuts)
	}
}

func TestBuild_FullDurationKeepMeansNoCuts(t *testing.T) {
	t.Parallel()

	// A sliver of silence at the very edge rounds away to a full-span keep.
	p := Build(params([]ports.SilenceInterval{{Start: 0, End: 20 * time.Millisecond}}))
	if len(p.Cuts) != 0 || p.SilenceSkipped {
		t.Fatalf("expected plain plan, got %+v", p)
	}
}

func TestFallback_SamePlanSemantics(t *testing.T) {
	t.Parallel()

	hw := Build(Params{
		Clip:               clip(10, 40, "A Long Title With Many Words"),
		Crop:               staticCrop(),
		Silence:            []ports.SilenceInterval{{Start: sec(5), End: sec(8)}},
		SubtitlePath:       "subs.srt",
		Speed:              1.2,
		HWAccelAvailable:   true,
		VAAPIDevice:        "/dev/dri/renderD128",
		MinKeep:            50 * time.Millisecond,
		MaxRemovedFraction: 0.8,
	})
	if !hw.Profile.Hardware || hw.Profile.VideoCodec != "h264_vaapi" {
		t.Fatalf("expected vaapi profile, got %+v", hw.Profile)
	}

	sw := hw.Fallback()
	if sw.Profile.Hardware || sw.Profile.VideoCodec != "libx264" {
		t.Fatalf("expected software profile, got %+v", sw.Profile)
	}
	if !reflect.DeepEqual(hw.Cuts, sw.Cuts) ||
		!reflect.DeepEqual(hw.Crop, sw.Crop) ||
		hw.Overlays != sw.Overlays ||
		hw.Speed != sw.Speed {
		t.Fatalf("fallback changed plan semantics: %+v vs %+v", hw, sw)
	}
}

func TestSplitTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, line1, line2 string
	}{
		{"Short title", "Short title", ""},
		{"One two three four", "One two three four", ""},
		{"One two three four five", "One two three", "four five"},
		{"", "", ""},
	}
	for _, tc := range cases {
		l1, l2 := splitTitle(tc.in)
		if l1 != tc.line1 || l2 != tc.line2 {
			t.Fatalf("splitTitle(%q) = %q, %q", tc.in, l1, l2)
		}
	}
}

func TestEscapeFilterPath_DoubleEscapes(t *testing.T) {
	t.Parallel()

	got := escapeFilterPath(`C:\Fonts\arial.ttf`)
	want := `C\\:\\\\Fonts\\\\arial.ttf`
	if got != want {
		t.Fatalf("escapeFilterPath = %q, want %q", got, want)
	}
}

func TestCommandArgs_SoftwarePlain(t *testing.T) {
	t.Parallel()

	p := Build(params(nil))
	args := strings.Join(p.CommandArgs("in.mp4", "out.mp4"), " ")

	for _, want := range []string{"-ss 10.000", "-to 40.000", "-copyts", "libx264", "-crf 23", "+faststart", "atempo=1.2"} {
		if !strings.Contains(args, want) {
			t.Fatalf("args missing %q:\n%s", want, args)
		}
	}
	if strings.Contains(args, "hwupload") || strings.Contains(args, "init_hw_device") {
		t.Fatalf("software args carry hardware stages:\n%s", args)
	}
	if strings.Contains(args, "concat=") {
		t.Fatalf("plain plan should not use the concat tail:\n%s", args)
	}
}

func TestCommandArgs_HardwareWithCuts(t *testing.T) {
	t.Parallel()

	prm := params([]ports.SilenceInterval{{Start: sec(5), End: sec(8)}})
	prm.HWAccelAvailable = true
	prm.VAAPIDevice = "/dev/dri/renderD128"
	p := Build(prm)

	args := strings.Join(p.CommandArgs("in.mp4", "out.mp4"), " ")
	for _, want := range []string{
		"-init_hw_device vaapi=va:/dev/dri/renderD128",
		"h264_vaapi",
		"hwupload",
		"concat=n=2:v=1:a=1",
		"trim=start=10.000:end=15.000",
		"trim=start=18.000:end=40.000",
	} {
		if !strings.Contains(args, want) {
			t.Fatalf("args missing %q:\n%s", want, args)
		}
	}
}

func TestCropXExpr_StaticWindow(t *testing.T) {
	t.Parallel()

	got := cropXExpr(staticCrop())
	// A centered window on the scaled foreground is (2160-1440)/2.
	if got != "360" {
		t.Fatalf("cropXExpr = %q, want 360", got)
	}
}

func TestCropXExpr_MovingWindowIsPiecewise(t *testing.T) {
	t.Parallel()

	wins := []framing.CropWindow{
		{Time: sec(10), Left: 0, Width: 0.3164, Height: 1},
		{Time: sec(12), Left: 0.6836, Width: 0.3164, Height: 1},
	}
	got := cropXExpr(wins)
	if !strings.Contains(got, "if(lt(t") {
		t.Fatalf("expected piecewise expression, got %q", got)
	}
}

func TestCropKeyframes_Downsampled(t *testing.T) {
	t.Parallel()

	var wins []framing.CropWindow
	for i := 0; i < 500; i++ {
		wins = append(wins, framing.CropWindow{Time: sec(float64(i)), Left: 0.1, Width: 0.3, Height: 1})
	}
	got := cropKeyframes(wins)
	if len(got) > maxCropKeyframes+1 {
		t.Fatalf("keyframes not bounded: %d", len(got))
	}
	if got[len(got)-1].t != wins[len(wins)-1].Time {
		t.Fatalf("last keyframe dropped")
	}
}
