// Package bytecode implements the SistaV1-compatible instruction set and
// method assembler spec.md §4.3.4 and §6 describe: a 256-opcode space
// split into 1/2/3-byte size bands, several 16-wide short-form ranges for
// the hottest single-argument instructions, and two prefix bytecodes
// (ExtA/ExtB) that extend an otherwise-too-small immediate by shifting an
// accumulator by 256 per prefix emitted.
//
// The opcode numbering here is this codebase's own: the retrieval corpus
// names the format (original_source/vm/BytecodeSets.hpp) but generates
// its actual opcode-to-name table from a SistaV1BytecodeSet.inc file that
// is not present in that tree, so the concrete assignment below is
// reconstructed from spec.md §6's wire-format prose and
// original_source/vm/BytecodeSets.cpp's getSistaBytecodeSize banding
// (opcodes below 224 are one byte, 224-247 are two, 248-255 are three),
// not transcribed from a canonical table. See DESIGN.md.
//
// The assembler itself (Assembler, the Instruction node shape, and its
// two-pass max-size/better-size layout loop) is grounded on
// original_source/vm/MethodBuilder.hpp/.cpp's InstructionNode/Assembler
// classes -- including fully implementing encodeExtA/encodeExtB, which
// the original left as LODTALK_UNIMPLEMENTED() stubs.
package bytecode
