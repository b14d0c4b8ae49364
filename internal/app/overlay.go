package app

import (
	"image"
	"image/color"

	"github.com/ayusman/handrunner/internal/detector"
	"github.com/ayusman/handrunner/internal/gesture"
	"gocv.io/x/gocv"
)

var (
	boneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	jointColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	textColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// DrawOverlay draws each hand's skeleton and the last dispatched gesture
// onto frame in place.
func DrawOverlay(frame *gocv.Mat, hands []detector.HandLandmarks, last gesture.Gesture) {
	w, h := frame.Cols(), frame.Rows()
	if w == 0 || h == 0 {
		return
	}

	for i := range hands {
		pts := pixelPoints(&hands[i], w, h)
		for _, c := range detector.HandConnections {
			gocv.Line(frame, pts[c.From], pts[c.To], boneColor, 2)
		}
		for _, p := range pts {
			gocv.Circle(frame, p, 4, jointColor, -1)
		}
	}

	if last != gesture.None {
		gocv.PutText(frame, "Last: "+last.String(), image.Pt(10, 30),
			gocv.FontHersheySimplex, 0.9, textColor, 2)
	}
}

// pixelPoints maps normalized landmarks to pixel coordinates.
func pixelPoints(hand *detector.HandLandmarks, w, h int) [detector.NumLandmarks]image.Point {
	var pts [detector.NumLandmarks]image.Point
	for i, p := range hand.Points {
		pts[i] = image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}
	return pts
}
