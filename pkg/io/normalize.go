package io

import (
	"bytes"
	"encoding/json"

	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/story"
)

// Version identifies which historical shape a persisted document has.
type Version int

const (
	// VersionInvalid marks data that is not JSON, or whose top level is
	// neither an array nor an object.
	VersionInvalid Version = iota
	// VersionSceneArray is the earliest shape: a bare array of scenes with
	// no loose layers.
	VersionSceneArray
	// VersionSplitLoose is an object with scenes plus separate looseImages
	// and looseTextLayers arrays.
	VersionSplitLoose
	// VersionCurrent is an object with scenes and a unified looseLayers array.
	VersionCurrent
)

// String returns a short name for the version.
func (v Version) String() string {
	switch v {
	case VersionSceneArray:
		return "v0 (scene array)"
	case VersionSplitLoose:
		return "v1 (looseImages/looseTextLayers)"
	case VersionCurrent:
		return "v2 (looseLayers)"
	default:
		return "invalid"
	}
}

// looseEntry is a raw loose layer together with the kind implied by the
// array it was found in.
type looseEntry struct {
	raw  json.RawMessage
	kind story.LayerKind
}

// rawDocument is the single normalized shape every version is reduced to
// before entities are decoded.
type rawDocument struct {
	scenes list
	loose  []looseEntry
}

// DetectVersion reports which document shape data has without decoding it.
func DetectVersion(data []byte) Version {
	_, v, err := normalize(data)
	if err != nil {
		return VersionInvalid
	}
	return v
}

// normalize detects the document shape and reduces it to a rawDocument.
// A JSON null is treated as an empty current document.
func normalize(data []byte) (*rawDocument, Version, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, VersionInvalid, errs.New(errs.ErrCodeParse, "document is not valid JSON")
	}

	doc := &rawDocument{}
	switch data[0] {
	case 'n':
		return doc, VersionCurrent, nil

	case '[':
		if err := json.Unmarshal(data, &doc.scenes); err != nil {
			return nil, VersionInvalid, errs.Wrap(errs.ErrCodeParse, err, "decode scene array")
		}
		return doc, VersionSceneArray, nil

	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, VersionInvalid, errs.Wrap(errs.ErrCodeParse, err, "decode document")
		}
		if raw, ok := top["scenes"]; ok {
			_ = json.Unmarshal(raw, &doc.scenes)
		}

		if raw, ok := top["looseLayers"]; ok {
			doc.loose = looseEntries(raw, story.LayerText)
			return doc, VersionCurrent, nil
		}
		images, hasImages := top["looseImages"]
		texts, hasTexts := top["looseTextLayers"]
		if !hasImages && !hasTexts {
			return doc, VersionCurrent, nil
		}
		doc.loose = append(looseEntries(images, story.LayerImage), looseEntries(texts, story.LayerText)...)
		return doc, VersionSplitLoose, nil
	}

	return nil, VersionInvalid, errs.New(errs.ErrCodeParse, "document must be an array or an object")
}

func looseEntries(raw json.RawMessage, kind story.LayerKind) []looseEntry {
	if raw == nil {
		return nil
	}
	var l list
	_ = json.Unmarshal(raw, &l)
	out := make([]looseEntry, 0, len(l))
	for _, r := range l {
		out = append(out, looseEntry{raw: r, kind: kind})
	}
	return out
}
