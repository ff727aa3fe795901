// Package workstation is the boundary to the DAW. Adapter is what the engine
// needs from the host; GetItemsForPreview and GetItemsForImport turn the
// host's render targets into resolved Wwise object paths. ManifestAdapter
// implements Adapter from a YAML render manifest so the engine can run
// without a live DAW.
package workstation
