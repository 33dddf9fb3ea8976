package compiler

import (
	"fmt"
	"strings"
)

// MaxSymbols bounds the number of live entries on the symbol stack.
const MaxSymbols = 100

type SymbolKind int

const (
	SymbolVariable SymbolKind = iota
	SymbolLabel
)

func (k SymbolKind) String() string {
	if k == SymbolLabel {
		return "label"
	}
	return "variable"
}

// Symbol is one entry of the scope stack.
type Symbol struct {
	Kind   SymbolKind
	Token  Token  // declaring token; Lexeme is the name
	Target string // assembly label, labels only
}

func (s Symbol) Name() string { return s.Token.Lexeme }

// SymbolTable is a stack of symbols partitioned into nested scopes.
// Entries in [base, len) belong to the innermost open scope; older entries
// stay visible for lookups but not for duplicate checks.
//
// Only variables occupy slots on the target's runtime stack, so offsets
// count variables between an entry and the top.
type SymbolTable struct {
	entries  []Symbol
	base     int
	capacity int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{capacity: MaxSymbols}
}

// Len is the number of live entries.
func (s *SymbolTable) Len() int { return len(s.entries) }

// Base is the index of the first entry of the current scope.
func (s *SymbolTable) Base() int { return s.base }

// Push declares sym in the current scope.
func (s *SymbolTable) Push(sym Symbol) error {
	if len(s.entries) >= s.capacity {
		return semanticError(ErrStackOverflow, sym.Token)
	}
	if _, ok := s.FindInScope(sym.Kind, sym.Name()); ok {
		if sym.Kind == SymbolLabel {
			return semanticError(ErrDuplicateLabel, sym.Token)
		}
		return semanticError(ErrDuplicateDeclaration, sym.Token)
	}
	s.entries = append(s.entries, sym)
	return nil
}

// EnterScope opens a new scope and returns the previous base for ExitScope.
func (s *SymbolTable) EnterScope() int {
	prev := s.base
	s.base = len(s.entries)
	return prev
}

// PopScope removes every entry of the current scope and returns them,
// most recent first.
func (s *SymbolTable) PopScope() []Symbol {
	removed := make([]Symbol, 0, len(s.entries)-s.base)
	for i := len(s.entries) - 1; i >= s.base; i-- {
		removed = append(removed, s.entries[i])
	}
	s.entries = s.entries[:s.base]
	return removed
}

// ExitScope pops the current scope and restores the enclosing one.
func (s *SymbolTable) ExitScope(prevBase int) []Symbol {
	removed := s.PopScope()
	s.base = prevBase
	return removed
}

// FindInScope looks name up in the current scope only.
func (s *SymbolTable) FindInScope(kind SymbolKind, name string) (offset int, ok bool) {
	return s.find(kind, name, s.base)
}

// Visible looks name up in every open scope, innermost first.
func (s *SymbolTable) Visible(kind SymbolKind, name string) (Symbol, int, bool) {
	off, ok := s.find(kind, name, 0)
	if !ok {
		return Symbol{}, -1, false
	}
	return s.entries[s.index(kind, name, 0)], off, true
}

func (s *SymbolTable) index(kind SymbolKind, name string, floor int) int {
	for i := len(s.entries) - 1; i >= floor; i-- {
		if e := s.entries[i]; e.Kind == kind && e.Name() == name {
			return i
		}
	}
	return -1
}

func (s *SymbolTable) find(kind SymbolKind, name string, floor int) (int, bool) {
	i := s.index(kind, name, floor)
	if i < 0 {
		return -1, false
	}
	off := 0
	for _, e := range s.entries[i+1:] {
		if e.Kind == SymbolVariable {
			off++
		}
	}
	return off, true
}

// String dumps the stack top first, marking the current scope base.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	if len(s.entries) == 0 {
		return "Symbols: (empty)\n"
	}
	fmt.Fprintf(&sb, "Symbols (%d/%d, base %d):\n", len(s.entries), s.capacity, s.base)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		marker := " "
		if i == s.base {
			marker = ">"
		}
		fmt.Fprintf(&sb, " %s %3d  %-8s  %-10s line %d", marker, i, e.Kind, e.Name(), e.Token.Line)
		if e.Target != "" {
			fmt.Fprintf(&sb, "  -> %s", e.Target)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
