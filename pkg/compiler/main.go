// Package compiler provides the FL2021 scanner, parser and code generator
// targeting the accumulator/stack machine assembly understood by pkg/asm.
//
// Pipeline: source → Scanner → Parser → syntax tree → Generate → assembly text
package compiler
