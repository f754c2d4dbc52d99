package dao

import (
	"fmt"

	"github.com/graffiticode/graffiticode/engine/content"
	"github.com/graffiticode/graffiticode/engine/taskid"
)

// nilRef is the wire form of the chain terminator.
const nilRef = "0"

// Chain is a linked list of tasks in the memory backend's reference layout.
type Chain interface {
	isChain()
}

// Cons is one task in a chain.
type Cons struct {
	Lang string
	Code content.Handle
	Next Chain
}

// Nil terminates a chain.
type Nil struct{}

func (Cons) isChain() {}
func (Nil) isChain()  {}

// single returns the one-task chain addressing lang and code.
func single(lang string, code content.Handle) Cons {
	return Cons{Lang: lang, Code: code, Next: Nil{}}
}

// Refs flattens a chain into its wire references.
func Refs(c Chain) []string {
	var refs []string
	for {
		cons, ok := c.(Cons)
		if !ok {
			return append(refs, nilRef)
		}
		refs = append(refs, cons.Lang, cons.Code.String())
		c = cons.Next
	}
}

// parseChains reads one or more concatenated chains from refs.
// Each chain holds at least one Cons and ends with the terminator.
func parseChains(id string, refs []string) ([]Chain, error) {
	var chains []Chain
	for i := 0; i < len(refs); {
		chain, next, err := parseChain(id, refs, i)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
		i = next
	}
	if len(chains) == 0 {
		return nil, taskid.NewDecodeIDError(id, "no task chain", nil)
	}
	return chains, nil
}

func parseChain(id string, refs []string, start int) (Chain, int, error) {
	var conses []Cons
	i := start
	for {
		if i >= len(refs) {
			return nil, 0, taskid.NewDecodeIDError(id, "unterminated task chain", nil)
		}
		if refs[i] == nilRef {
			if len(conses) == 0 {
				return nil, 0, taskid.NewDecodeIDError(id, "empty task chain", nil)
			}
			i++
			break
		}
		if i+1 >= len(refs) {
			return nil, 0, taskid.NewDecodeIDError(id, "task chain missing code handle", nil)
		}
		h, err := content.ParseHandle(refs[i+1])
		if err != nil {
			return nil, 0, taskid.NewDecodeIDError(id, fmt.Sprintf("bad code handle at %d", i+1), err)
		}
		conses = append(conses, Cons{Lang: refs[i], Code: h})
		i += 2
	}
	var chain Chain = Nil{}
	for j := len(conses) - 1; j >= 0; j-- {
		conses[j].Next = chain
		chain = conses[j]
	}
	return chain, i, nil
}

// walk calls fn for every Cons of every chain in order.
func walk(chains []Chain, fn func(Cons) error) error {
	for _, c := range chains {
		for {
			cons, ok := c.(Cons)
			if !ok {
				break
			}
			if err := fn(cons); err != nil {
				return err
			}
			c = cons.Next
		}
	}
	return nil
}
