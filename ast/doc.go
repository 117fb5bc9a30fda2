// Package ast defines the node shapes an external parser is assumed to
// produce. The parser itself is out of scope (spec.md §1); this package
// only fixes the contract compiler/ is written against, grounded on
// original_source/vm/AST.hpp's node set (Lodtalk::AST::Node and its
// subclasses) reshaped as plain Go structs instead of a visitor-dispatched
// class hierarchy, since Go favors a type switch over double-dispatch
// visitors for a closed, rarely-extended node set.
package ast
