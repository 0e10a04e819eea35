// Package io reads and writes Novella project documents.
//
// # JSON Format
//
// The current document shape is an object with two arrays:
//
//	{
//	  "scenes": [
//	    {
//	      "id": "4f1c...", "title": "Forest", "body": "<p>Dark.</p>",
//	      "background": "#ffffff", "x": 60, "y": 60, "width": 260, "height": 240,
//	      "layers": [
//	        {"id": "...", "type": "text", "content": "Hi", "x": 20, "y": 150,
//	         "width": 160, "height": 50, "fontFamily": "default", "fontSize": 16,
//	         "color": "#0f172a", "bold": false, "italic": false,
//	         "underline": false, "zIndex": 1}
//	      ],
//	      "choices": [
//	        {"id": "...", "text": "Go on", "target": null, "x": 20, "y": 110,
//	         "width": 170, "height": 50, "background": "#2563eb",
//	         "color": "#ffffff", "bold": true, "fontSize": 16,
//	         "borderRadius": 12, "group": ""}
//	      ]
//	    }
//	  ],
//	  "looseLayers": [
//	    {"id": "...", "type": "image", "src": "https://...", "x": 530,
//	     "y": 345, "width": 220, "height": 110, "zIndex": 1}
//	  ]
//	}
//
// # Older Shapes
//
// Two earlier shapes are still read: a bare array of scenes, and an object
// whose loose layers are split into "looseImages" and "looseTextLayers".
// [DetectVersion] reports which shape a document has. Reading normalizes all
// of them once into the current model; nothing downstream sees the
// difference.
//
// # Defaults
//
// Reading is lenient. Numeric strings are accepted for numbers, and values of
// the wrong type are treated as missing. Missing values get the defaults of
// package story. Only data that is not JSON at all, or whose top level is a
// scalar, fails with a PARSE_ERROR.
//
// # Export
//
// [Marshal], [WriteJSON] and [ExportJSON] always write the current shape with
// every field present, so a project survives a write/read round trip
// unchanged.
package io
