package ast

import (
	"microc/internal/ctype"
)

// SetType retypes a sub-tree without inserting any runtime conversion —
// meaningful only among types that share a representation (int <-> pointer,
// or widening to float). It recurses into BinaryOp and UnaryOp; IntLit only
// succeeds retyping to Float or Ptr(_); FloatLit only to Float; Malloc only
// to Ptr(_); every other node kind fails. Never confuse this with Cast,
// which always inserts a runtime Cast node.
func SetType(n Node, target ctype.Type) error {
	if n.CType().Equal(target) {
		return nil
	}
	if !n.CType().IsMutable() || !target.IsMutable() {
		return typeErrorf("type error: cannot retype %s to %s", n.CType(), target)
	}
	switch v := n.(type) {
	case *BinaryOp:
		v.Typ = target
		if err := SetType(v.LHS, target); err != nil {
			return err
		}
		return SetType(v.RHS, target)
	case *UnaryOp:
		v.Typ = target
		return SetType(v.Operand, target)
	case *IntLit:
		if target.Kind == ctype.Float || target.Kind == ctype.Ptr {
			v.Typ = target
			return nil
		}
		return typeErrorf("type error: cannot retype an int literal to %s", target)
	case *FloatLit:
		if target.Kind == ctype.Float {
			v.Typ = target
			return nil
		}
		return typeErrorf("type error: cannot retype a float literal to %s", target)
	case *Malloc:
		if target.Kind == ctype.Ptr {
			v.Typ = target
			return nil
		}
		return typeErrorf("type error: cannot retype malloc's result to %s", target)
	default:
		return typeErrorf("type error: node of this kind cannot be retyped")
	}
}

// CastTo wraps n in an unconditional Cast node to target.
func CastTo(n Node, target ctype.Type) Node {
	return &Cast{Operand: n, Typ: target}
}
