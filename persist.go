package texsync

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sceneDocVersion is bumped when the document layout changes incompatibly.
const sceneDocVersion = 1

// SceneDocument is the serialized form of a session's editable state: the
// layer stack with normalized placements plus a PNG snapshot of the composed
// surface. Placements are stored in UV so a document saved at one resolution
// restores correctly at any other.
type SceneDocument struct {
	Version     int           `yaml:"version"`
	DisplaySize int           `yaml:"display_size"`
	TextureSize int           `yaml:"texture_size"`
	Layers      []LayerRecord `yaml:"layers"`

	// Snapshot is the flushed surface as a base64 PNG, usable directly as
	// a thumbnail or preview without recompositing.
	Snapshot string `yaml:"snapshot"`
}

// LayerRecord is one serialized layer.
type LayerRecord struct {
	Name     string  `yaml:"name"`
	U        float64 `yaml:"u"`
	V        float64 `yaml:"v"`
	ScaleX   float64 `yaml:"scale_x"`
	ScaleY   float64 `yaml:"scale_y"`
	Rotation float64 `yaml:"rotation"`
	Opacity  float64 `yaml:"opacity"`
	Visible  bool    `yaml:"visible"`
	Image    string  `yaml:"image"` // base64 PNG; empty for malformed layers
}

// SaveScene flushes the pipeline so the surface is synchronized, then
// captures the session's state as a document.
func (s *Session) SaveScene() (*SceneDocument, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}

	doc := &SceneDocument{
		Version:     sceneDocVersion,
		DisplaySize: s.pipeline.Surface.Size().Width,
		TextureSize: s.pipeline.Mirror.Size().Width,
	}

	snapshot, err := encodePNG(s.pipeline.Surface.RGBA())
	if err != nil {
		return nil, fmt.Errorf("texsync: encoding surface snapshot: %w", err)
	}
	doc.Snapshot = snapshot

	for _, l := range s.layers {
		rec := LayerRecord{
			Name:     l.Name,
			U:        l.Placement.Center.U,
			V:        l.Placement.Center.V,
			ScaleX:   l.Placement.ScaleX,
			ScaleY:   l.Placement.ScaleY,
			Rotation: l.Placement.Rotation,
			Opacity:  l.Opacity,
			Visible:  l.Visible,
		}
		if l.Image != nil {
			data, err := encodePNG(l.Image)
			if err != nil {
				return nil, fmt.Errorf("texsync: encoding layer %q: %w", l.Name, err)
			}
			rec.Image = data
		}
		doc.Layers = append(doc.Layers, rec)
	}
	return doc, nil
}

// SaveSceneFile writes the scene document as YAML.
func (s *Session) SaveSceneFile(path string) error {
	doc, err := s.SaveScene()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadScene rebuilds the layer stack from a document, recomposes the
// surface, and flushes so the mirror and materials are synchronized before
// normal scheduling resumes. The texture resolution follows the document.
func (s *Session) LoadScene(doc *SceneDocument) error {
	if doc == nil {
		return fmt.Errorf("texsync: load requires a document: %w", ErrInvalidArgument)
	}
	if doc.Version != sceneDocVersion {
		return fmt.Errorf("texsync: unsupported scene document version %d", doc.Version)
	}

	layers := make([]*Layer, 0, len(doc.Layers))
	for _, rec := range doc.Layers {
		var img *image.RGBA
		if rec.Image != "" {
			decoded, err := decodePNG(rec.Image)
			if err != nil {
				return fmt.Errorf("texsync: decoding layer %q: %w", rec.Name, err)
			}
			img = decoded
		}
		l := NewLayer(rec.Name, img)
		l.Placement = Placement{
			Center:   UV{U: rec.U, V: rec.V},
			ScaleX:   rec.ScaleX,
			ScaleY:   rec.ScaleY,
			Rotation: rec.Rotation,
		}
		l.Opacity = rec.Opacity
		l.Visible = rec.Visible
		layers = append(layers, l)
	}

	if doc.TextureSize > 0 && doc.TextureSize != s.pipeline.Mirror.Size().Width {
		if err := s.pipeline.Mirror.Resize(doc.TextureSize, doc.TextureSize); err != nil {
			return err
		}
	}
	if err := s.SetLayers(layers); err != nil {
		return err
	}
	return s.Flush()
}

// LoadSceneFile reads a YAML scene document and restores it.
func (s *Session) LoadSceneFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("texsync: loading scene from %s: %w", path, err)
	}
	var doc SceneDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("texsync: parsing scene %s: %w", path, err)
	}
	return s.LoadScene(&doc)
}

func encodePNG(img *image.RGBA) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodePNG(data string) (*image.RGBA, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	decoded, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if rgba, ok := decoded.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(decoded.Bounds())
	draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
	return rgba, nil
}
