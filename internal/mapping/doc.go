// Package mapping holds the user-authored hierarchy mapping: the ordered list
// of object types and name templates that rendered files are projected onto.
//
// It validates mappings against the containment table, builds the path
// pattern handed to the workstation for wildcard expansion, defines the
// conflict and template policies, and round-trips a session's settings as a
// deterministic CBOR blob or a YAML preset.
package mapping
