package extract

import "strings"

// fenceState tracks code fence parsing state.
type fenceState struct {
	inFence   bool
	fenceChar byte
	fenceLen  int
}

// processLine updates fence state based on the current line. It reports
// whether the line opens a fence, closes one, or sits inside one.
func (f *fenceState) processLine(trimmed string) (opens, closes, inside bool) {
	if !f.inFence {
		if len(trimmed) >= 3 && (trimmed[0] == '`' || trimmed[0] == '~') {
			n := countLeadingChars(trimmed, trimmed[0])
			if n >= 3 {
				f.inFence = true
				f.fenceChar = trimmed[0]
				f.fenceLen = n
				return true, false, false
			}
		}
		return false, false, false
	}
	if len(trimmed) > 0 && trimmed[0] == f.fenceChar {
		n := countLeadingChars(trimmed, f.fenceChar)
		// A closing fence is at least as long as the opening one and carries
		// nothing but fence characters.
		if n >= f.fenceLen && n == len(trimmed) {
			f.inFence = false
			f.fenceChar = 0
			f.fenceLen = 0
			return false, true, false
		}
	}
	return false, false, true
}

func countLeadingChars(s string, char byte) int {
	n := 0
	for n < len(s) && s[n] == char {
		n++
	}
	return n
}

// fenceBlock is one fenced block. open and close are line indexes of the
// delimiters; close is len(lines) for a block that is never closed.
type fenceBlock struct {
	open  int
	close int
	lang  string
}

func (b fenceBlock) body(lines []string) string {
	end := b.close
	if end > len(lines) {
		end = len(lines)
	}
	if b.open+1 >= end {
		return ""
	}
	return strings.Join(lines[b.open+1:end], "\n")
}

// layout is the fence structure of a text: its blocks and, per line, whether
// the line belongs to a block (delimiters included).
type layout struct {
	lines   []string
	blocks  []fenceBlock
	inBlock []bool
}

func scanLayout(text string) layout {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	l := layout{lines: lines, inBlock: make([]bool, len(lines))}
	var st fenceState
	cur := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		opens, closes, inside := st.processLine(trimmed)
		switch {
		case opens:
			lang := strings.TrimSpace(strings.TrimLeft(trimmed, string(trimmed[0])))
			l.blocks = append(l.blocks, fenceBlock{open: i, close: len(lines), lang: lang})
			cur = len(l.blocks) - 1
			l.inBlock[i] = true
		case closes:
			if cur >= 0 {
				l.blocks[cur].close = i
				cur = -1
			}
			l.inBlock[i] = true
		case inside:
			l.inBlock[i] = true
		}
	}
	return l
}

// firstBlockIn returns the first block opening within [from, to).
func (l layout) firstBlockIn(from, to int) (fenceBlock, bool) {
	for _, b := range l.blocks {
		if b.open >= from && b.open < to {
			return b, true
		}
	}
	return fenceBlock{}, false
}

// soleBlock reports whether the whole text is a single fenced block, ignoring
// blank lines around it.
func (l layout) soleBlock() (fenceBlock, bool) {
	first, last := nonBlankBounds(l.lines)
	if first < 0 {
		return fenceBlock{}, false
	}
	for _, b := range l.blocks {
		if b.open == first && b.close == last {
			return b, true
		}
	}
	return fenceBlock{}, false
}

// outerFence returns the body of a text wrapped in one fence whose body nests
// fences of the same length (which scanLayout closes early). The first
// non-blank line must open a fence, the last must close it, and the fences
// between must pair up.
func (l layout) outerFence() (string, bool) {
	first, last := nonBlankBounds(l.lines)
	if first < 0 || last <= first {
		return "", false
	}
	var st fenceState
	if opens, _, _ := st.processLine(strings.TrimSpace(l.lines[first])); !opens {
		return "", false
	}
	closing := strings.TrimSpace(l.lines[last])
	if n := countLeadingChars(closing, st.fenceChar); n < st.fenceLen || n != len(closing) {
		return "", false
	}
	body := strings.Join(l.lines[first+1:last], "\n")
	inner := scanLayout(body)
	for _, b := range inner.blocks {
		if b.close >= len(inner.lines) {
			return "", false
		}
	}
	return body, true
}

func nonBlankBounds(lines []string) (first, last int) {
	first, last = -1, -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return first, last
}
