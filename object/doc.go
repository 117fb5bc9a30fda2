// Package object defines the tagged value model: the one-word Value
// encoding shared by every immediate and heap pointer, the 8-byte object
// header every heap object carries, and the Format codes that describe an
// object's slot layout.
package object
