package eval

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

func init() {
	addBuiltin("list", Func(listCommand))
}

var listSubcommands = map[string]func(d *Directory, args []string) error{
	"LENGTH":            listLength,
	"GET":               listGet,
	"APPEND":            listAppend,
	"PREPEND":           listPrepend,
	"INSERT":            listInsert,
	"REMOVE_ITEM":       listRemoveItem,
	"REMOVE_AT":         listRemoveAt,
	"REMOVE_DUPLICATES": listRemoveDuplicates,
	"REVERSE":           listReverse,
	"SORT":              listSort,
	"FIND":              listFind,
	"JOIN":              listJoin,
	"SUBLIST":           listSublist,
	"POP_BACK":          listPop,
	"POP_FRONT":         listPop,
}

func listCommand(st *Status, args []string) error {
	if len(args) < 2 {
		return errors.New("must be called with at least two arguments.")
	}
	sub, ok := listSubcommands[args[0]]
	if !ok {
		return errors.New("does not recognize sub-command " + args[0])
	}
	return sub(st.Dir(), args)
}

// The elements of the list in a variable, keeping empty elements. It returns
// false if the variable is not defined.
func (d *Directory) getList(name string) ([]string, bool) {
	v, ok := d.GetDefinition(name)
	if !ok {
		return nil, false
	}
	if v == "" {
		return []string{}, true
	}
	return ExpandList(v, true), true
}

func parseIndex(s string) (int, error) {
	n, ok := parseInt(s)
	if !ok {
		return 0, fmt.Errorf("index: %s is not a valid index", s)
	}
	return int(n), nil
}

// Resolves a possibly negative index into a list of n elements.
func listIndex(i, n int) (int, error) {
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return 0, fmt.Errorf("index: %d out of range (-%d, %d)", i, n, n-1)
	}
	return j, nil
}

func listLength(d *Directory, args []string) error {
	if len(args) != 3 {
		return errors.New("sub-command LENGTH requires two arguments.")
	}
	list, _ := d.getList(args[1])
	d.AddDefinition(args[2], itoa(len(list)))
	return nil
}

func listGet(d *Directory, args []string) error {
	if len(args) < 4 {
		return errors.New("sub-command GET requires at least three arguments.")
	}
	out := args[len(args)-1]
	list, ok := d.getList(args[1])
	if !ok {
		d.AddDefinition(out, "NOTFOUND")
		return nil
	}
	if len(list) == 0 {
		return errors.New("GET given empty list")
	}
	var items []string
	for _, arg := range args[2 : len(args)-1] {
		i, err := parseIndex(arg)
		if err != nil {
			return err
		}
		j, err := listIndex(i, len(list))
		if err != nil {
			return err
		}
		items = append(items, list[j])
	}
	d.AddDefinition(out, JoinList(items))
	return nil
}

func listAppend(d *Directory, args []string) error {
	if len(args) < 3 {
		return nil
	}
	name := args[1]
	current := d.GetSafeDefinition(name)
	if current == "" {
		d.AddDefinition(name, JoinList(args[2:]))
	} else {
		d.AddDefinition(name, current+";"+JoinList(args[2:]))
	}
	return nil
}

func listPrepend(d *Directory, args []string) error {
	if len(args) < 3 {
		return nil
	}
	name := args[1]
	current := d.GetSafeDefinition(name)
	if current == "" {
		d.AddDefinition(name, JoinList(args[2:]))
	} else {
		d.AddDefinition(name, JoinList(args[2:])+";"+current)
	}
	return nil
}

func listInsert(d *Directory, args []string) error {
	if len(args) < 4 {
		return errors.New("sub-command INSERT requires at least three arguments.")
	}
	name := args[1]
	i, err := parseIndex(args[2])
	if err != nil {
		return err
	}
	list, _ := d.getList(name)
	n := len(list)
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j > n {
		return fmt.Errorf("index: %d out of range (-%d, %d)", i, n, n)
	}
	result := append(append(append([]string{}, list[:j]...), args[3:]...), list[j:]...)
	d.AddDefinition(name, JoinList(result))
	return nil
}

func listRemoveItem(d *Directory, args []string) error {
	if len(args) < 3 {
		return errors.New("sub-command REMOVE_ITEM requires two or more arguments.")
	}
	name := args[1]
	list, ok := d.getList(name)
	if !ok {
		return nil
	}
	remove := make(map[string]bool)
	for _, item := range args[2:] {
		remove[item] = true
	}
	var kept []string
	for _, elem := range list {
		if !remove[elem] {
			kept = append(kept, elem)
		}
	}
	d.AddDefinition(name, JoinList(kept))
	return nil
}

func listRemoveAt(d *Directory, args []string) error {
	if len(args) < 3 {
		return errors.New("sub-command REMOVE_AT requires at least two arguments.")
	}
	name := args[1]
	list, ok := d.getList(name)
	if !ok || len(list) == 0 {
		return fmt.Errorf("index: %s out of range (0, 0)", strings.Join(args[2:], ", "))
	}
	remove := make(map[int]bool)
	for _, arg := range args[2:] {
		i, err := parseIndex(arg)
		if err != nil {
			return err
		}
		j, err := listIndex(i, len(list))
		if err != nil {
			return err
		}
		remove[j] = true
	}
	var kept []string
	for i, elem := range list {
		if !remove[i] {
			kept = append(kept, elem)
		}
	}
	d.AddDefinition(name, JoinList(kept))
	return nil
}

func listRemoveDuplicates(d *Directory, args []string) error {
	if len(args) != 2 {
		return errors.New("sub-command REMOVE_DUPLICATES only takes one argument.")
	}
	name := args[1]
	list, ok := d.getList(name)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var kept []string
	for _, elem := range list {
		if !seen[elem] {
			seen[elem] = true
			kept = append(kept, elem)
		}
	}
	d.AddDefinition(name, JoinList(kept))
	return nil
}

func listReverse(d *Directory, args []string) error {
	if len(args) != 2 {
		return errors.New("sub-command REVERSE only takes one argument.")
	}
	name := args[1]
	list, ok := d.getList(name)
	if !ok {
		return nil
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	d.AddDefinition(name, JoinList(list))
	return nil
}

func listSort(d *Directory, args []string) error {
	if len(args) > 8 {
		return errors.New("sub-command SORT only takes up to six arguments.")
	}
	options := map[string][]string{
		"COMPARE": {"STRING", "FILE_BASENAME", "NATURAL"},
		"CASE":    {"SENSITIVE", "INSENSITIVE"},
		"ORDER":   {"ASCENDING", "DESCENDING"},
	}
	chosen := map[string]string{}
	for i := 2; i < len(args); i += 2 {
		option := args[i]
		values, ok := options[option]
		if !ok {
			return fmt.Errorf("sub-command SORT option \"%s\" is unknown.", option)
		}
		if _, seen := chosen[option]; seen {
			return fmt.Errorf("sub-command SORT option \"%s\" has been specified multiple times.", option)
		}
		if i+1 >= len(args) {
			return fmt.Errorf("sub-command SORT missing argument for option \"%s\".", option)
		}
		value := args[i+1]
		valid := false
		for _, v := range values {
			valid = valid || v == value
		}
		if !valid {
			return fmt.Errorf("sub-command SORT value \"%s\" for option \"%s\" is invalid.", value, option)
		}
		chosen[option] = value
	}

	name := args[1]
	list, ok := d.getList(name)
	if !ok {
		return nil
	}
	key := func(s string) string {
		if chosen["COMPARE"] == "FILE_BASENAME" {
			s = filepath.Base(s)
		}
		if chosen["CASE"] == "INSENSITIVE" {
			s = strings.ToLower(s)
		}
		return s
	}
	less := func(a, b string) bool { return key(a) < key(b) }
	if chosen["COMPARE"] == "NATURAL" {
		less = func(a, b string) bool { return naturalCompare(key(a), key(b)) < 0 }
	}
	descending := chosen["ORDER"] == "DESCENDING"
	sort.SliceStable(list, func(i, j int) bool {
		if descending {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
	d.AddDefinition(name, JoinList(list))
	return nil
}

// Compares strings treating runs of digits as numbers.
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		if isASCIIDigit(a[0]) && isASCIIDigit(b[0]) {
			na, nb := digitRun(a), digitRun(b)
			ta, tb := strings.TrimLeft(a[:na], "0"), strings.TrimLeft(b[:nb], "0")
			if len(ta) != len(tb) {
				if len(ta) < len(tb) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(ta, tb); c != 0 {
				return c
			}
			a, b = a[na:], b[nb:]
			continue
		}
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return strings.Compare(a, b)
}

func isASCIIDigit(c byte) bool { return '0' <= c && c <= '9' }

func digitRun(s string) int {
	i := 0
	for i < len(s) && isASCIIDigit(s[i]) {
		i++
	}
	return i
}

func listFind(d *Directory, args []string) error {
	if len(args) != 4 {
		return errors.New("sub-command FIND requires three arguments.")
	}
	out := args[3]
	list, _ := d.getList(args[1])
	for i, elem := range list {
		if elem == args[2] {
			d.AddDefinition(out, itoa(i))
			return nil
		}
	}
	d.AddDefinition(out, "-1")
	return nil
}

func listJoin(d *Directory, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("sub-command JOIN requires three arguments (%d found).", len(args)-1)
	}
	list, _ := d.getList(args[1])
	d.AddDefinition(args[3], strings.Join(list, args[2]))
	return nil
}

func listSublist(d *Directory, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("sub-command SUBLIST requires four arguments (%d found).", len(args)-1)
	}
	out := args[4]
	list, ok := d.getList(args[1])
	if !ok || len(list) == 0 {
		d.AddDefinition(out, "")
		return nil
	}
	start, err := parseIndex(args[2])
	if err != nil {
		return err
	}
	length, err := parseIndex(args[3])
	if err != nil {
		return err
	}
	if start < 0 || start >= len(list) {
		return fmt.Errorf("begin index: %d is out of range 0 - %d", start, len(list)-1)
	}
	if length < -1 {
		return fmt.Errorf("length: %d should be -1 or greater", length)
	}
	end := len(list)
	if length != -1 && start+length < end {
		end = start + length
	}
	d.AddDefinition(out, JoinList(list[start:end]))
	return nil
}

// POP_BACK and POP_FRONT.
func listPop(d *Directory, args []string) error {
	front := args[0] == "POP_FRONT"
	name, vars := args[1], args[2:]
	list, ok := d.getList(name)
	if !ok {
		for _, v := range vars {
			d.RemoveDefinition(v)
		}
		return nil
	}
	if len(list) == 0 {
		for _, v := range vars {
			d.RemoveDefinition(v)
		}
		return nil
	}
	pop := func() string {
		var elem string
		if front {
			elem, list = list[0], list[1:]
		} else {
			elem, list = list[len(list)-1], list[:len(list)-1]
		}
		return elem
	}
	if len(vars) == 0 {
		pop()
	}
	for _, v := range vars {
		if len(list) == 0 {
			d.RemoveDefinition(v)
		} else {
			d.AddDefinition(v, pop())
		}
	}
	d.AddDefinition(name, JoinList(list))
	return nil
}
