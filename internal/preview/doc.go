// Package preview predicts what an import will do.
//
// Engine.Run resolves the mapping into one object path per rendered item,
// builds the tree of those paths and their ancestors, fetches the remote
// objects around the destination, and marks every node New, Replaced,
// No Change or Renamed under the conflict policy. Leaves also get a WAV
// status from the originals directory. A run whose inputs hash the same as
// the previous one, with no trigger fired in between, is answered from the
// previous result without remote calls.
package preview
