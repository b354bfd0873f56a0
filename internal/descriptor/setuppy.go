package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/distgen/internal/models"
	"github.com/sirupsen/logrus"
)

// findPackagesCall is an unevaluated find_packages() expression
type findPackagesCall struct {
	Where   string
	Include []string
	Exclude []string
}

// readFileCall is an open(path).read() expression
type readFileCall struct {
	Path string
}

// keyword is a keyword argument of the setup() call
type keyword struct {
	Value interface{}
	Line  int
}

type setupParser struct {
	toks []token
	pos  int
}

// ParseSetupCall extracts the keyword arguments of the first setup() call in
// src. Only literal values are accepted; anything computed at runtime is an
// error naming the keyword and line.
func ParseSetupCall(src string) (map[string]keyword, error) {
	lex := newLexer(src)
	var toks []token
	for {
		tok, err := lex.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			break
		}
	}

	start := -1
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].kind != tokIdent || toks[i].text != "setup" || !isPunct(toks[i+1], "(") {
			continue
		}
		if i > 0 && toks[i-1].kind == tokIdent && toks[i-1].text == "def" {
			continue
		}
		start = i + 2
		break
	}
	if start < 0 {
		return nil, fmt.Errorf("no setup() call found")
	}

	p := &setupParser{toks: toks, pos: start}
	return p.parseKeywords()
}

func (p *setupParser) cur() token {
	return p.toks[p.pos]
}

func (p *setupParser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *setupParser) expect(punct string) error {
	tok := p.advance()
	if !isPunct(tok, punct) {
		return fmt.Errorf("line %d: expected %q, found %s", tok.line, punct, tok)
	}
	return nil
}

func (p *setupParser) parseKeywords() (map[string]keyword, error) {
	kwargs := make(map[string]keyword)
	for {
		tok := p.cur()
		if isPunct(tok, ")") {
			p.advance()
			return kwargs, nil
		}
		if tok.kind == tokEOF {
			return nil, fmt.Errorf("line %d: unterminated setup() call", tok.line)
		}
		if isPunct(tok, "**") {
			return nil, fmt.Errorf("line %d: keyword unpacking in setup() is not supported", tok.line)
		}
		if tok.kind != tokIdent || !isPunct(p.toks[p.pos+1], "=") {
			return nil, fmt.Errorf("line %d: setup() accepts keyword arguments only, found %s", tok.line, tok)
		}

		name := tok.text
		p.pos += 2
		value, err := p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := kwargs[name]; dup {
			return nil, fmt.Errorf("line %d: keyword %s repeated", tok.line, name)
		}
		kwargs[name] = keyword{Value: value, Line: tok.line}

		next := p.cur()
		if isPunct(next, ",") {
			p.advance()
			continue
		}
		if !isPunct(next, ")") {
			return nil, fmt.Errorf("line %d: expected \",\" or \")\", found %s", next.line, next)
		}
	}
}

// parseExpr parses a literal, allowing "+" between strings or lists
func (p *setupParser) parseExpr() (interface{}, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for isPunct(p.cur(), "+") {
		op := p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		switch l := left.(type) {
		case string:
			r, ok := right.(string)
			if !ok {
				return nil, fmt.Errorf("line %d: cannot add %T to string", op.line, right)
			}
			left = l + r
		case []interface{}:
			r, ok := right.([]interface{})
			if !ok {
				return nil, fmt.Errorf("line %d: cannot add %T to list", op.line, right)
			}
			left = append(l, r...)
		default:
			return nil, fmt.Errorf("line %d: unsupported operand for +", op.line)
		}
	}
	return left, nil
}

func (p *setupParser) parsePrimary() (interface{}, error) {
	tok := p.advance()

	switch tok.kind {
	case tokString:
		s := tok.text
		// Adjacent literals concatenate
		for p.cur().kind == tokString {
			s += p.advance().text
		}
		return s, nil

	case tokNumber:
		return tok.text, nil

	case tokIdent:
		switch tok.text {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		case "setuptools":
			// setuptools.find_packages(...)
			if isPunct(p.cur(), ".") {
				p.advance()
				return p.parsePrimary()
			}
		case "find_packages", "find_namespace_packages":
			return p.parseFindPackages()
		case "open":
			return p.parseOpenRead()
		}
		return nil, fmt.Errorf("line %d: unsupported expression %s", tok.line, tok)

	case tokPunct:
		switch tok.text {
		case "[":
			return p.parseSequence("]")
		case "(":
			items, err := p.parseTupleOrGroup()
			if err != nil {
				return nil, err
			}
			return items, nil
		case "{":
			return p.parseDict()
		case "-":
			num := p.advance()
			if num.kind != tokNumber {
				return nil, fmt.Errorf("line %d: unsupported expression %s", num.line, num)
			}
			return "-" + num.text, nil
		}
	}

	return nil, fmt.Errorf("line %d: unsupported expression %s", tok.line, tok)
}

func (p *setupParser) parseSequence(closing string) ([]interface{}, error) {
	items := []interface{}{}
	for {
		if isPunct(p.cur(), closing) {
			p.advance()
			return items, nil
		}
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		next := p.advance()
		if isPunct(next, closing) {
			return items, nil
		}
		if !isPunct(next, ",") {
			return nil, fmt.Errorf("line %d: expected \",\" or %q, found %s", next.line, closing, next)
		}
	}
}

// parseTupleOrGroup distinguishes ("a") from ("a",)
func (p *setupParser) parseTupleOrGroup() (interface{}, error) {
	if isPunct(p.cur(), ")") {
		p.advance()
		return []interface{}{}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if isPunct(p.cur(), ")") {
		p.advance()
		return first, nil
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	rest, err := p.parseSequence(")")
	if err != nil {
		return nil, err
	}
	return append([]interface{}{first}, rest...), nil
}

func (p *setupParser) parseDict() (map[string]interface{}, error) {
	dict := make(map[string]interface{})
	for {
		if isPunct(p.cur(), "}") {
			p.advance()
			return dict, nil
		}
		keyTok := p.cur()
		key, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		k, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("line %d: dictionary keys must be strings", keyTok.line)
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		dict[k] = value

		next := p.advance()
		if isPunct(next, "}") {
			return dict, nil
		}
		if !isPunct(next, ",") {
			return nil, fmt.Errorf("line %d: expected \",\" or \"}\", found %s", next.line, next)
		}
	}
}

func (p *setupParser) parseFindPackages() (interface{}, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	call := &findPackagesCall{Where: "."}
	positional := 0

	for !isPunct(p.cur(), ")") {
		tok := p.cur()
		name := ""
		if tok.kind == tokIdent && isPunct(p.toks[p.pos+1], "=") {
			name = tok.text
			p.pos += 2
		} else {
			switch positional {
			case 0:
				name = "where"
			case 1:
				name = "exclude"
			case 2:
				name = "include"
			default:
				return nil, fmt.Errorf("line %d: too many arguments to find_packages()", tok.line)
			}
			positional++
		}

		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		switch name {
		case "where":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("line %d: find_packages where must be a string", tok.line)
			}
			call.Where = s
		case "exclude", "include":
			list, err := toStringList(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: find_packages %s: %w", tok.line, name, err)
			}
			if name == "exclude" {
				call.Exclude = list
			} else {
				call.Include = list
			}
		default:
			return nil, fmt.Errorf("line %d: unknown find_packages argument %s", tok.line, name)
		}

		if isPunct(p.cur(), ",") {
			p.advance()
		}
	}
	p.advance()
	return call, nil
}

// parseOpenRead accepts open("README.md"[, ...]).read()
func (p *setupParser) parseOpenRead() (interface{}, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	pathTok := p.cur()
	path, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	s, ok := path.(string)
	if !ok {
		return nil, fmt.Errorf("line %d: open() path must be a string literal", pathTok.line)
	}

	// Mode and encoding arguments do not change what is read
	depth := 0
	for {
		tok := p.advance()
		if tok.kind == tokEOF {
			return nil, fmt.Errorf("line %d: unterminated open() call", pathTok.line)
		}
		if isPunct(tok, "(") {
			depth++
		}
		if isPunct(tok, ")") {
			if depth == 0 {
				break
			}
			depth--
		}
	}

	if err := p.expect("."); err != nil {
		return nil, err
	}
	method := p.advance()
	if method.kind != tokIdent || method.text != "read" {
		return nil, fmt.Errorf("line %d: only open(...).read() is supported", method.line)
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return &readFileCall{Path: s}, nil
}

func isPunct(tok token, text string) bool {
	return tok.kind == tokPunct && tok.text == text
}

// LoadSetupPy reads the setup() call of a setup.py file
func LoadSetupPy(path string) (*models.Descriptor, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	kwargs, err := ParseSetupCall(string(src))
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(path)
	desc := &models.Descriptor{
		SourcePath: path,
		Root:       root,
	}

	for name, kw := range kwargs {
		if err := applyKeyword(desc, name, kw, root); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", kw.Line, name, err)
		}
	}

	return desc, nil
}

func applyKeyword(desc *models.Descriptor, name string, kw keyword, root string) error {
	var err error
	switch name {
	case "name":
		desc.Name, err = toString(kw.Value, root)
	case "version":
		desc.Version, err = toString(kw.Value, root)
	case "description":
		desc.Description, err = toString(kw.Value, root)
	case "url":
		desc.URL, err = toString(kw.Value, root)
	case "author":
		desc.Author, err = toString(kw.Value, root)
	case "author_email":
		desc.AuthorEmail, err = toString(kw.Value, root)
	case "license":
		desc.License, err = toString(kw.Value, root)
	case "long_description":
		desc.LongDescription, err = toString(kw.Value, root)
	case "long_description_content_type":
		desc.LongDescriptionContentType, err = toString(kw.Value, root)
	case "python_requires":
		desc.PythonRequires, err = toString(kw.Value, root)
	case "packages":
		if call, ok := kw.Value.(*findPackagesCall); ok {
			desc.Packages, err = FindPackages(filepath.Join(root, call.Where), call.Include, call.Exclude)
		} else {
			desc.Packages, err = toStringList(kw.Value)
		}
	case "install_requires":
		desc.InstallRequires, err = toRequirementList(kw.Value)
	case "classifiers":
		desc.Classifiers, err = toStringList(kw.Value)
	case "keywords":
		if s, ok := kw.Value.(string); ok {
			desc.Keywords = splitKeywords(s)
		} else {
			desc.Keywords, err = toStringList(kw.Value)
		}
	case "license_files":
		desc.LicenseFiles, err = toStringList(kw.Value)
	case "package_dir":
		desc.PackageDir, err = toStringMap(kw.Value)
	case "package_data":
		desc.PackageData, err = toListMap(kw.Value)
	case "zip_safe":
		switch v := kw.Value.(type) {
		case bool:
			desc.ZipSafe = models.Bool(v)
		case nil:
			desc.ZipSafe = nil
		default:
			err = fmt.Errorf("expected a boolean, got %T", kw.Value)
		}
	default:
		logrus.Debugf("Ignoring setup() keyword %s", name)
	}
	return err
}

func toString(v interface{}, root string) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", nil
	case *readFileCall:
		data, err := os.ReadFile(filepath.Join(root, s.Path))
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("expected a string, got %T", v)
	}
}

func toStringList(v interface{}) ([]string, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a list of strings, found %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

// toRequirementList accepts a list or a newline separated string
func toRequirementList(v interface{}) ([]string, error) {
	s, ok := v.(string)
	if !ok {
		return toStringList(v)
	}
	var reqs []string
	for _, line := range strings.Split(s, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			reqs = append(reqs, line)
		}
	}
	return reqs, nil
}

func toStringMap(v interface{}) (map[string]string, error) {
	dict, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a dictionary, got %T", v)
	}
	out := make(map[string]string, len(dict))
	for k, value := range dict {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("value for %q must be a string", k)
		}
		out[k] = s
	}
	return out, nil
}

func toListMap(v interface{}) (map[string][]string, error) {
	dict, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a dictionary, got %T", v)
	}
	out := make(map[string][]string, len(dict))
	for k, value := range dict {
		list, err := toStringList(value)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", k, err)
		}
		out[k] = list
	}
	return out, nil
}

func splitKeywords(s string) []string {
	sep := " "
	if strings.Contains(s, ",") {
		sep = ","
	}
	var out []string
	for _, kw := range strings.Split(s, sep) {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
