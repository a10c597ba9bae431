package detect

import (
	"math"
	"sort"

	"github.com/hyperjump/vidsense/internal/media"
)

// COCOLabels are the 80 class names of COCO-trained YOLO models, in class-index order.
var COCOLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat", "traffic light",
	"fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard",
	"cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase",
	"scissors", "teddy bear", "hair drier", "toothbrush",
}

// frameToCHW converts packed RGB24 pixels to planar float32 in [0, 1].
func frameToCHW(frame *media.Frame, dst []float32) {
	plane := frame.Width * frame.Height
	for i := 0; i < plane && i*3+2 < len(frame.Pix); i++ {
		dst[i] = float32(frame.Pix[i*3]) / 255
		dst[plane+i] = float32(frame.Pix[i*3+1]) / 255
		dst[2*plane+i] = float32(frame.Pix[i*3+2]) / 255
	}
}

// decodeYOLO reads a [1, 4+classes, anchors] output where each anchor carries (cx, cy, w, h) then per-class scores.
// Candidates below confThreshold are dropped and the rest are reduced by per-class NMS.
func decodeYOLO(output []float32, labels []string, anchors int, confThreshold, iouThreshold float64) []Detection {
	classes := len(labels)
	if anchors <= 0 || len(output) < (4+classes)*anchors {
		return nil
	}
	at := func(row, a int) float64 { return float64(output[row*anchors+a]) }

	var candidates []Detection
	for a := 0; a < anchors; a++ {
		best, bestScore := -1, 0.0
		for c := 0; c < classes; c++ {
			if s := at(4+c, a); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < confThreshold {
			continue
		}
		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		candidates = append(candidates, Detection{
			Label:      labels[best],
			Confidence: bestScore,
			Box:        Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2},
		})
	}
	return nms(candidates, iouThreshold)
}

// nms keeps the highest-confidence box of each overlapping group, per label.
func nms(dets []Detection, iouThreshold float64) []Detection {
	sort.SliceStable(dets, func(i, j int) bool { return dets[i].Confidence > dets[j].Confidence })
	var kept []Detection
	for _, d := range dets {
		suppressed := false
		for _, k := range kept {
			if k.Label == d.Label && iou(k.Box, d.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b Box) float64 {
	inter := Box{
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
		X2: math.Min(a.X2, b.X2),
		Y2: math.Min(a.Y2, b.Y2),
	}.Area()
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
