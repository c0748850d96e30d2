package parse

import "src.cmk.sh/pkg/diag"

type nestingKind int

const (
	nestIf nestingKind = iota
	nestElse
	nestWhile
	nestForeach
	nestFunction
	nestMacro
	nestBlock
)

type nestingState struct {
	kind nestingKind
	fn   *Function
}

// CheckNesting verifies that the flow control commands of fns are properly
// nested. On failure, the error is located at the innermost construct still
// open at the point of the failure, or at the offending command if there is
// none.
func CheckNesting(file string, fns []Function) error {
	if fn := findBadNesting(fns); fn != nil {
		return &diag.Error{Type: errorType,
			Message:  "Flow control statements are not properly nested.",
			Position: diag.Position{File: file, Line: fn.Line}}
	}
	return nil
}

func findBadNesting(fns []Function) *Function {
	var stack []nestingState
	topIs := func(kinds ...nestingKind) bool {
		if len(stack) == 0 {
			return false
		}
		for _, k := range kinds {
			if stack[len(stack)-1].kind == k {
				return true
			}
		}
		return false
	}
	mismatch := func(fn *Function) *Function {
		if len(stack) > 0 {
			return stack[len(stack)-1].fn
		}
		return fn
	}
	closeIf := func(fn *Function, kind nestingKind) *Function {
		if !topIs(kind) {
			return mismatch(fn)
		}
		stack = stack[:len(stack)-1]
		return nil
	}

	for i := range fns {
		fn := &fns[i]
		var bad *Function
		switch fn.LowerName {
		case "if":
			stack = append(stack, nestingState{nestIf, fn})
		case "elseif":
			if !topIs(nestIf) {
				bad = mismatch(fn)
			} else {
				stack[len(stack)-1].fn = fn
			}
		case "else":
			// A repeated else is reported when the if chain runs.
			if !topIs(nestIf, nestElse) {
				bad = mismatch(fn)
			} else {
				stack[len(stack)-1] = nestingState{nestElse, fn}
			}
		case "endif":
			if !topIs(nestIf, nestElse) {
				bad = mismatch(fn)
			} else {
				stack = stack[:len(stack)-1]
			}
		case "while":
			stack = append(stack, nestingState{nestWhile, fn})
		case "endwhile":
			bad = closeIf(fn, nestWhile)
		case "foreach":
			stack = append(stack, nestingState{nestForeach, fn})
		case "endforeach":
			bad = closeIf(fn, nestForeach)
		case "function":
			stack = append(stack, nestingState{nestFunction, fn})
		case "endfunction":
			bad = closeIf(fn, nestFunction)
		case "macro":
			stack = append(stack, nestingState{nestMacro, fn})
		case "endmacro":
			bad = closeIf(fn, nestMacro)
		case "block":
			stack = append(stack, nestingState{nestBlock, fn})
		case "endblock":
			bad = closeIf(fn, nestBlock)
		}
		if bad != nil {
			return bad
		}
	}
	if len(stack) > 0 {
		return stack[len(stack)-1].fn
	}
	return nil
}
