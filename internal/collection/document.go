package collection

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"dualout/internal/nodemap"
	"dualout/internal/scenes"
)

// Format selects a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat normalizes a user supplied format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported document format %q", value)
	}
}

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is the portable form of a scene collection.
type Document struct {
	ID             string      `json:"id,omitempty" yaml:"id,omitempty"`
	Name           string      `json:"name" yaml:"name"`
	DualOutputMode bool        `json:"dualOutputMode" yaml:"dual_output_mode"`
	ActiveSceneID  string      `json:"activeSceneId,omitempty" yaml:"active_scene_id,omitempty"`
	Scenes         []SceneDoc  `json:"scenes" yaml:"scenes"`
	NodeMap        *NodeMapDoc `json:"nodeMap,omitempty" yaml:"node_map,omitempty"`
}

// SceneDoc is one scene with its nodes in flat order.
type SceneDoc struct {
	ID    string    `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Nodes []NodeDoc `json:"nodes" yaml:"nodes"`
}

// NodeDoc is one item or folder. Display is empty for untagged nodes.
type NodeDoc struct {
	ID        string           `json:"id" yaml:"id"`
	Type      scenes.NodeType  `json:"type" yaml:"type"`
	Name      string           `json:"name" yaml:"name"`
	ParentID  string           `json:"parentId,omitempty" yaml:"parent_id,omitempty"`
	SourceID  string           `json:"sourceId,omitempty" yaml:"source_id,omitempty"`
	Transform scenes.Transform `json:"transform" yaml:"transform"`
	Visible   bool             `json:"visible" yaml:"visible"`
	Locked    bool             `json:"locked" yaml:"locked"`
	Display   string           `json:"display,omitempty" yaml:"display,omitempty"`
}

// NodeMapDoc holds sceneID -> horizontalID -> verticalID.
type NodeMapDoc struct {
	SceneNodeMaps nodemap.Snapshot `json:"sceneNodeMaps" yaml:"scene_node_maps"`
}

// Snapshot returns the document's node maps, or nil for a vanilla collection.
func (d *Document) Snapshot() nodemap.Snapshot {
	if d == nil || d.NodeMap == nil {
		return nil
	}
	return d.NodeMap.SceneNodeMaps
}

// NodeCount counts nodes across all scenes.
func (d *Document) NodeCount() int {
	total := 0
	for _, s := range d.Scenes {
		total += len(s.Nodes)
	}
	return total
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *Document, format Format) error {
	if doc == nil {
		return fmt.Errorf("encode document: document is nil")
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml document: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json document: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported document format %q", format)
	}
}

// Decode reads a document from r.
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = "Untitled"
	}
	return &doc, nil
}

// Marshal encodes doc into a byte slice.
func Marshal(doc *Document, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
