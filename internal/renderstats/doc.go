// Package renderstats tokenizes the render statistics string a workstation
// reports after a render. The grammar is a flat list of KEY:value tokens
// separated by ';', where each FILE token starts a new rendered file.
package renderstats
