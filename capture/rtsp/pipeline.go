package rtsp

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// pipelineConfig describes one GStreamer pipeline instance.
type pipelineConfig struct {
	url       string
	width     int
	height    int
	fps       int
	latencyMS int
}

// buildPipeline assembles the decode chain:
//
//	rtspsrc → rtph264depay → avdec_h264 → videoconvert → videoscale →
//	videorate → capsfilter(GRAY8) → appsink
//
// videoconvert collapses the decoded YUV to GRAY8 (luma only), videoscale
// normalizes the resolution, and videorate drops to the target FPS so the
// preview pipeline never sees more frames than it asked for.
//
// The pipeline is returned in NULL state; the caller starts it.
func buildPipeline(cfg pipelineConfig, onSample func(*app.Sink) gst.FlowReturn) (*gst.Pipeline, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	// protocols=4 forces TCP, required for go2rtc and most NVRs.
	rtspsrc, err := gst.NewElement("rtspsrc")
	if err != nil {
		return nil, fmt.Errorf("create rtspsrc: %w", err)
	}
	rtspsrc.SetProperty("location", cfg.url)
	rtspsrc.SetProperty("protocols", 4)
	rtspsrc.SetProperty("latency", cfg.latencyMS)

	depay, err := gst.NewElement("rtph264depay")
	if err != nil {
		return nil, fmt.Errorf("create rtph264depay: %w", err)
	}
	decoder, err := gst.NewElement("avdec_h264")
	if err != nil {
		return nil, fmt.Errorf("create avdec_h264: %w", err)
	}
	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("create videoconvert: %w", err)
	}
	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(grayCaps(cfg.width, cfg.height, cfg.fps)))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)
	appsink.SetCallbacks(&app.SinkCallbacks{NewSampleFunc: onSample})

	pipeline.AddMany(rtspsrc, depay, decoder, converter, scaler, videorate, capsfilter, appsink.Element)

	if err := gst.ElementLinkMany(depay, decoder, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("link pipeline elements: %w", err)
	}

	// rtspsrc pads appear once the stream is negotiated.
	rtspsrc.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		if sinkPad := depay.GetStaticPad("sink"); sinkPad != nil {
			srcPad.Link(sinkPad)
		}
	})

	return pipeline, nil
}

// grayCaps builds the appsink caps string. GRAY8 gives one byte per pixel,
// exactly the raster the preview pipeline consumes.
func grayCaps(width, height, fps int) string {
	if fps <= 0 {
		fps = 1
	}
	return fmt.Sprintf(
		"video/x-raw,format=GRAY8,width=%d,height=%d,framerate=%d/1",
		width, height, fps,
	)
}
