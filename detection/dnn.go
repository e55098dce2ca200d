package detection

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DNNProvider runs YOLO-style inference through the OpenCV DNN module.
type DNNProvider struct {
	net        gocv.Net
	classNames []string
	log        zerolog.Logger
	mu         sync.Mutex
}

// NewDNNProvider loads the network and class names from disk.
func NewDNNProvider(weightsPath, configPath, namesPath string, log zerolog.Logger) (*DNNProvider, error) {
	net := gocv.ReadNet(weightsPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s and %s", weightsPath, configPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	namesBytes, err := os.ReadFile(namesPath)
	if err != nil {
		net.Close()
		return nil, fmt.Errorf("could not read class names: %w", err)
	}
	var classNames []string
	for _, line := range strings.Split(string(namesBytes), "\n") {
		classNames = append(classNames, normalizeClassName(line))
	}

	return &DNNProvider{
		net:        net,
		classNames: classNames,
		log:        log.With().Str("component", "detector").Logger(),
	}, nil
}

// normalizeClassName strips dataset prefixes like "2-no_helmet" down to the
// bare label, mirroring how the training class list is written.
func normalizeClassName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "-"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// Detect implements Provider.
func (p *DNNProvider) Detect(frame gocv.Mat, cfg Config) ([]Detection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	size := cfg.ImageSize
	if size <= 0 {
		size = DefaultConfig().ImageSize
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	output := p.net.Forward("")
	defer output.Close()

	frameW := float32(frame.Cols())
	frameH := float32(frame.Rows())

	var dets []Detection
	for i := 0; i < output.Rows(); i++ {
		row := output.RowRange(i, i+1)
		data := row.Clone()
		scores := data.ColRange(5, data.Cols())
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(scores)
		classID := maxLoc.X
		confidence := float64(maxVal)

		if confidence >= cfg.ConfidenceThreshold && classID < len(p.classNames) {
			// Output rows carry normalized center/size coordinates.
			cx := data.GetFloatAt(0, 0) * frameW
			cy := data.GetFloatAt(0, 1) * frameH
			w := data.GetFloatAt(0, 2) * frameW
			h := data.GetFloatAt(0, 3) * frameH

			box := image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2))
			d, err := NewDetection(p.classNames[classID], box, confidence)
			if err != nil {
				p.log.Debug().Err(err).Msg("discarding malformed detection")
			} else {
				dets = append(dets, d)
			}
		}

		scores.Close()
		data.Close()
		row.Close()
	}

	return dets, nil
}

// Close releases the underlying network.
func (p *DNNProvider) Close() error {
	return p.net.Close()
}
