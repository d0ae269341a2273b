// Package fixture imports patient datasets written in YAML.
//
// A dataset lists patients with their examinations, interventions and
// attachment files. It is checked against an embedded CUE schema before any
// record is written, so a typo in a field name or a malformed date rejects
// the whole file. Attachment paths are resolved relative to the dataset.
//
// Example:
//
//	patients:
//	  - first_name: Jane
//	    last_name: Smith
//	    birth_date: "2000-06-15"
//	    examinations:
//	      - date: "2020-06-14"
//	        height_m: 1.80
//	        weight_kg: 75
//	        attachments:
//	          - path: videos/walk.mp4
package fixture
