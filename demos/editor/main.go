// Editor is an interactive demonstration of the canvas-to-texture pipeline:
// two image layers are composited onto the raster surface, one of them
// animated with a tween, and the result is mirrored live onto every material
// whose name contains "image". Press A to add a model out-of-band (its
// materials get no texture), R to run validation + recovery, and Q to cycle
// the texture quality ladder.
package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/tanema/gween/ease"

	"github.com/tigerpresentations/texsync"
	"github.com/tigerpresentations/texsync/ebitenhost"
)

const (
	screenW = 960
	screenH = 540
)

type game struct {
	host    *ebitenhost.Host
	session *texsync.Session

	logo     *texsync.Layer
	tween    *texsync.TweenGroup
	front    *ebitenhost.Material
	back     *ebitenhost.Material
	oobCount int // out-of-band models added so far
	status   string
	lastFix  texsync.ScanResult
}

func main() {
	cfg := texsync.DefaultConfig()
	cfg.Logging.Level = "debug"

	logger, err := texsync.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	session, err := texsync.NewSession(cfg, logger)
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	g := &game{session: session}
	g.host, err = ebitenhost.New(session)
	if err != nil {
		log.Fatalf("host: %v", err)
	}

	// One model through the normal add path, with one matching and one
	// non-matching material.
	g.front = ebitenhost.NewMaterial("mat-front", "Image_Front")
	g.back = ebitenhost.NewMaterial("mat-back", "Backer")
	root := texsync.NewGroup("display-stand")
	root.AddChild(texsync.NewMeshNode("front-panel", g.front))
	root.AddChild(texsync.NewMeshNode("backer-panel", g.back))
	inst, err := texsync.NewModelInstance("stand-1", root)
	if err != nil {
		log.Fatalf("instance: %v", err)
	}
	if _, err := session.AddModel(inst); err != nil {
		log.Fatalf("add model: %v", err)
	}

	// Two layers: a full-bleed checker background and an animated badge.
	bg := texsync.NewLayer("checker", checkerImage(256, 32))
	g.logo = texsync.NewLayer("badge", badgeImage(96))
	g.logo.Placement.ScaleX = 0.3
	g.logo.Placement.ScaleY = 0.3
	g.logo.Placement.Center = texsync.UV{U: 0.2, V: 0.2}
	if err := session.SetLayers([]*texsync.Layer{bg, g.logo}); err != nil {
		log.Fatalf("layers: %v", err)
	}
	g.retarget()

	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("texsync — editor demo")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

// retarget starts the badge layer moving to the opposite corner.
func (g *game) retarget() {
	to := texsync.UV{U: 1 - g.logo.Placement.Center.U, V: 1 - g.logo.Placement.Center.V}
	g.tween = texsync.TweenCenter(g.logo, to, 2.5, ease.InOutQuad)
}

func (g *game) Update() error {
	if g.tween.Update(1.0 / 60.0) {
		if err := g.session.Compose(); err != nil {
			return err
		}
	}
	if g.tween.Done {
		g.retarget()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		g.addOutOfBand()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		report := g.session.Validate()
		if report.State == texsync.Inconsistent {
			res, err := g.session.Recover()
			if err != nil {
				return err
			}
			g.lastFix = res
		}
		g.status = fmt.Sprintf("state=%s repaired=%d", g.session.ConsistencyState(), g.lastFix.Processed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		g.cycleQuality()
	}

	if _, err := g.host.Step(); err != nil {
		return err
	}
	return nil
}

// addOutOfBand attaches a subtree directly to the scene root, skipping
// Session.AddModel — exactly the situation the retroactive scanner repairs.
func (g *game) addOutOfBand() {
	g.oobCount++
	mat := ebitenhost.NewMaterial(
		fmt.Sprintf("mat-oob-%d", g.oobCount),
		fmt.Sprintf("image_side_%d", g.oobCount))
	node := texsync.NewMeshNode("rogue-panel", mat)
	g.session.Root().AddChild(node)
	g.status = fmt.Sprintf("added out-of-band material %s — press R to recover", mat.UUID())
}

// cycleQuality steps the mirror through the quality ladder manually.
func (g *game) cycleQuality() {
	sizes := texsync.DefaultQualityLadder
	cur := g.session.Pipeline().Mirror.Size().Width
	next := sizes[0]
	for i, s := range sizes {
		if s == cur {
			next = sizes[(i+1)%len(sizes)]
			break
		}
	}
	if err := g.session.SetTextureSize(next); err != nil {
		g.status = fmt.Sprintf("quality change failed: %v", err)
		return
	}
	g.status = fmt.Sprintf("texture %d -> %d at %s", cur, next, time.Now().Format("15:04:05"))
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 24, G: 26, B: 33, A: 255})

	// The front panel shows the live mirror; the backer stays untextured.
	if img := g.front.Image(); img != nil {
		var op ebiten.DrawImageOptions
		scale := float64(screenH-60) / float64(img.Bounds().Dy())
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(30, 30)
		screen.DrawImage(img, &op)
	}

	msg := fmt.Sprintf("materials=%d  mirror=%dpx  %s\n[A] add out-of-band  [R] recover  [Q] quality",
		g.session.Pipeline().Registry.Len(),
		g.session.Pipeline().Mirror.Size().Width,
		g.status)
	ebitenutil.DebugPrintAt(screen, msg, 30, screenH-46)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

// checkerImage builds a two-tone checkerboard test card.
func checkerImage(size, cell int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	a := color.RGBA{R: 235, G: 235, B: 235, A: 255}
	b := color.RGBA{R: 180, G: 190, B: 205, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// badgeImage builds a solid disc on a transparent background.
func badgeImage(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - r + 0.5
			dy := float64(y) - r + 0.5
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, color.RGBA{R: 200, G: 60, B: 60, A: 255})
			}
		}
	}
	return img
}
