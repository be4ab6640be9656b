package renderplan

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dkotenko/clipcut/internal/domain/framing"
)

// Output canvas geometry. The foreground is scaled to fgScaledWidth and a
// canvasWidth-wide band is cropped out of it, composited over a blurred
// full-frame background to fill the 9:16 canvas.
const (
	canvasWidth   = 1440
	canvasHeight  = 2560
	fgScaledWidth = 2160
	blurSigma     = 40

	ctaText = "Watch Full Video Here \u25BC"

	// maxCropKeyframes bounds the piecewise-linear crop expression so the
	// ffmpeg command line stays manageable on long clips.
	maxCropKeyframes = 64
)

const subtitleForceStyle = "FontName=Arial," +
	"FontSize=12," +
	"Bold=1," +
	"PrimaryColour=&H00FFFFFF," +
	"OutlineColour=&H00000000," +
	"Outline=1," +
	"Shadow=0," +
	"MarginV=62"

var fontCandidates = []string{
	"/usr/share/fonts/TTF/Arialbd.TTF",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans-Bold.ttf",
	"/Library/Fonts/Arial Bold.ttf",
	"C:/Windows/Fonts/arialbd.ttf",
}

// CommandArgs compiles the plan into a full ffmpeg invocation for the given
// input and output paths.
func (p Plan) CommandArgs(input, output string) []string {
	fc, mapV, mapA := p.filterComplex()

	args := []string{"-y"}
	if p.Profile.Hardware {
		args = append(args,
			"-init_hw_device", "vaapi=va:"+p.Profile.VAAPIDevice,
			"-filter_hw_device", "va",
		)
	}
	args = append(args,
		"-ss", fmtSeconds(p.Clip.Start),
		"-to", fmtSeconds(p.Clip.End),
		"-copyts",
		"-i", input,
		"-filter_complex", fc,
		"-map", mapV,
		"-map", mapA,
		"-c:v", p.Profile.VideoCodec,
	)
	args = append(args, p.Profile.VideoArgs...)
	args = append(args, "-c:a", p.Profile.AudioCodec)
	args = append(args, p.Profile.AudioArgs...)
	args = append(args, "-movflags", "+faststart", output)
	return args
}

// filterComplex assembles the visual chain, then either the plain retiming
// tail or the trim/concat tail for silence cuts. The hardware profile adds
// an upload stage on the video map.
func (p Plan) filterComplex() (filter, mapV, mapA string) {
	visual := p.visualFilter()

	if len(p.Cuts) > 0 {
		filter, mapV, mapA = p.cutFilterComplex(visual)
	} else {
		filter, mapV, mapA = p.plainFilterComplex(visual)
	}

	if p.Profile.Hardware {
		filter = fmt.Sprintf("%s;%sformat=nv12,hwupload[outv_hw]", filter, mapV)
		mapV = "[outv_hw]"
	}
	return filter, mapV, mapA
}

// visualFilter builds the blurred-background vertical composition with crop
// motion, title lines, optional burned subtitles and the blinking CTA.
// Overlay positions are output canvas coordinates.
func (p Plan) visualFilter() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[0:v]split=2[bg][fg];")
	fmt.Fprintf(&b, "[bg]scale=-2:%d,crop=%d:%d:(iw-%d)/2:0,gblur=sigma=%d[bg_out];",
		canvasHeight, canvasWidth, canvasHeight, canvasWidth, blurSigma)
	fmt.Fprintf(&b, "[fg]scale=%d:-2,crop=%d:ih:%s:0[fg_out];",
		fgScaledWidth, canvasWidth, cropXExpr(p.Crop))
	fmt.Fprintf(&b, "[bg_out][fg_out]overlay=0:(H-h)/2,")

	fontSpec := fontSpec(resolveFontFile())

	fmt.Fprintf(&b, "drawtext=text='%s':%sfontsize=90:fontcolor=white:borderw=10:bordercolor=black:x=(w-text_w)/2:y=200,",
		escapeDrawtext(p.Overlays.TitleLine1), fontSpec)
	if p.Overlays.TitleLine2 != "" {
		fmt.Fprintf(&b, "drawtext=text='%s':%sfontsize=90:fontcolor=white:borderw=10:bordercolor=black:x=(w-text_w)/2:y=310,",
			escapeDrawtext(p.Overlays.TitleLine2), fontSpec)
	}
	if p.Overlays.SubtitlePath != "" {
		fmt.Fprintf(&b, "subtitles=%s:force_style='%s',",
			escapeFilterPath(p.Overlays.SubtitlePath), subtitleForceStyle)
	}
	fmt.Fprintf(&b, "drawtext=text='%s':%sfontsize=30:fontcolor=red:borderw=3:bordercolor=white:alpha='if(lt(mod(t\\,1)\\,0.5)\\,1\\,0)':x=(w-text_w)/2-20:y=h-310[v_visual]",
		escapeDrawtext(ctaText), fontSpec)

	return b.String()
}

func (p Plan) plainFilterComplex(visual string) (string, string, string) {
	start := fmtSeconds(p.Clip.Start)
	filter := fmt.Sprintf(
		"%s;[v_visual]setpts=(PTS-%s/TB)/%s[outv];[0:a]asetpts=PTS-%s/TB,atempo=%s[outa]",
		visual, start, fmtSpeed(p.Speed), start, fmtSpeed(p.Speed))
	return filter, "[outv]", "[outa]"
}

// cutFilterComplex trims each kept span on the un-sped absolute timeline,
// concatenates them and applies the speed factor last. Ordering matters:
// cutting before the speed change keeps the silence timestamps valid.
func (p Plan) cutFilterComplex(visual string) (string, string, string) {
	count := len(p.Cuts)

	var vSrc, aSrc strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&vSrc, "[v_src%d]", i)
		fmt.Fprintf(&aSrc, "[a_src%d]", i)
	}

	parts := []string{
		visual,
		fmt.Sprintf("[v_visual]split=%d%s", count, vSrc.String()),
		fmt.Sprintf("[0:a]asplit=%d%s", count, aSrc.String()),
	}

	var concatInputs strings.Builder
	for i, cut := range p.Cuts {
		absStart := fmtSeconds(p.Clip.Start + cut.Start)
		absEnd := fmtSeconds(p.Clip.Start + cut.End)
		parts = append(parts,
			fmt.Sprintf("[v_src%d]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d]", i, absStart, absEnd, i),
			fmt.Sprintf("[a_src%d]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d]", i, absStart, absEnd, i),
		)
		fmt.Fprintf(&concatInputs, "[v%d][a%d]", i, i)
	}

	parts = append(parts,
		fmt.Sprintf("%sconcat=n=%d:v=1:a=1[v_cat][a_cat]", concatInputs.String(), count),
		fmt.Sprintf("[v_cat]setpts=PTS/%s[outv]", fmtSpeed(p.Speed)),
		fmt.Sprintf("[a_cat]atempo=%s[outa]", fmtSpeed(p.Speed)),
	)

	return strings.Join(parts, ";"), "[outv]", "[outa]"
}

// cropXExpr maps crop window centers onto the scaled foreground and renders
// a piecewise-linear expression of t. Times are absolute source seconds,
// which is what the crop filter sees under -copyts.
func cropXExpr(windows []framing.CropWindow) string {
	xs := cropKeyframes(windows)
	if len(xs) == 0 {
		return strconv.Itoa((fgScaledWidth - canvasWidth) / 2)
	}
	if len(xs) == 1 {
		return strconv.Itoa(xs[0].x)
	}

	// Innermost term: hold the last keyframe value.
	expr := strconv.Itoa(xs[len(xs)-1].x)
	for i := len(xs) - 2; i >= 0; i-- {
		cur, next := xs[i], xs[i+1]
		span := next.t - cur.t
		if span <= 0 {
			continue
		}
		lerp := fmt.Sprintf("%d+(%d)*(t-%s)/%s",
			cur.x, next.x-cur.x, fmtSeconds(cur.t), fmtSeconds(span))
		expr = fmt.Sprintf("if(lt(t\\,%s)\\,%s\\,%s)", fmtSeconds(next.t), lerp, expr)
	}
	expr = fmt.Sprintf("if(lt(t\\,%s)\\,%d\\,%s)", fmtSeconds(xs[0].t), xs[0].x, expr)
	return "'" + expr + "'"
}

type cropKeyframe struct {
	t time.Duration
	x int
}

func cropKeyframes(windows []framing.CropWindow) []cropKeyframe {
	if len(windows) > maxCropKeyframes {
		stride := (len(windows) + maxCropKeyframes - 1) / maxCropKeyframes
		var kept []framing.CropWindow
		for i := 0; i < len(windows); i += stride {
			kept = append(kept, windows[i])
		}
		if last := windows[len(windows)-1]; len(kept) == 0 || kept[len(kept)-1].Time != last.Time {
			kept = append(kept, last)
		}
		windows = kept
	}

	out := make([]cropKeyframe, 0, len(windows))
	for _, w := range windows {
		center := w.Left + w.Width/2
		x := int(center*fgScaledWidth) - canvasWidth/2
		if x < 0 {
			x = 0
		}
		if x > fgScaledWidth-canvasWidth {
			x = fgScaledWidth - canvasWidth
		}
		out = append(out, cropKeyframe{t: w.Time, x: x})
	}
	return out
}

func resolveFontFile() string {
	candidates := fontCandidates
	if override := os.Getenv("CLIPCUT_FONT_FILE"); override != "" {
		candidates = append([]string{override}, candidates...)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func fontSpec(fontFile string) string {
	if fontFile != "" {
		return "fontfile=" + escapeFilterPath(fontFile) + ":"
	}
	return "font=Sans:"
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func fmtSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64)
}

// escapeFilterPath escapes a subtitles/fontfile value. These are parsed
// twice, by the filtergraph parser and then by the filter's own option
// splitter, so every special character needs a doubled escape.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\\\`)
	p = strings.ReplaceAll(p, ":", `\\:`)
	p = strings.ReplaceAll(p, "'", `\\'`)
	p = strings.ReplaceAll(p, "[", `\\[`)
	p = strings.ReplaceAll(p, "]", `\\]`)
	return p
}

func escapeDrawtext(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "'", "\u2019")
	text = strings.ReplaceAll(text, ":", "\\:")
	text = strings.ReplaceAll(text, ";", "\\;")
	text = strings.ReplaceAll(text, ",", "\\,")
	return text
}
