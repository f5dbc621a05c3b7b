package classify

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/kailas-cloud/contractdex/internal/domain"
)

// DefaultMaxInputTokens caps the source sent to the model.
const DefaultMaxInputTokens = 4000

// tokenEncoding is the tokenizer the input cap is measured in.
const tokenEncoding = "cl100k_base"

// encoding loads the BPE ranks embedded in the binary, never from the network.
var encoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	return tiktoken.GetEncoding(tokenEncoding)
})

type rewrite struct {
	re   *regexp.Regexp
	repl string
	fn   func(string) string
}

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reSPDX         = regexp.MustCompile(`// SPDX-License-Identifier:.*\n`)
	reLineComment  = regexp.MustCompile(`//.*`)
	reManyNewlines = regexp.MustCompile(`\n{3,}`)
)

// Applied in order after comments are gone. Markers are inserted as line
// comments so the model still sees where boilerplate was.
var boilerplate = []rewrite{
	{re: regexp.MustCompile(`contract Context \{[\s\S]*?\}`), repl: "// Context removed"},
	{
		re:   regexp.MustCompile(`contract Ownable [\s\S]*?emit OwnershipTransferred\(address\(0\), msgSender\);\s*\}`),
		repl: "// Ownable implementation",
	},
	{re: regexp.MustCompile(`library SafeMath \{[\s\S]*?\}`), repl: "// SafeMath library"},
	{re: regexp.MustCompile(`interface IERC20 \{[\s\S]*?\}`), repl: "// IERC20 interface"},
	{re: regexp.MustCompile(`interface IUniswapV2Factory \{[\s\S]*?\}`), repl: "// UniswapV2 interfaces"},
	{re: regexp.MustCompile(`interface IUniswapV2Router02 \{[\s\S]*?\}`), repl: "// UniswapV2 router interface"},
	{re: regexp.MustCompile(`mapping (\(address => )?(\w+)\) private \w+;`), repl: "// ${1}${2} mapping"},
	{re: regexp.MustCompile(`pragma solidity \^?\d+\.\d+\.\d+;`), repl: "// Solidity version"},
	{re: regexp.MustCompile(`using SafeMath for uint256;`), repl: "// SafeMath usage"},
	{re: regexp.MustCompile(`\.add\(`), repl: "+"},
	{re: regexp.MustCompile(`\.sub\(`), repl: "-"},
	{re: regexp.MustCompile(`\.mul\(`), repl: "*"},
	{re: regexp.MustCompile(`\.div\(`), repl: "/"},
	{
		re:   regexp.MustCompile(`mapping \(address => uint256\) private _rOwned;[\s\S]*?_tFeeTotal;`),
		repl: "// Reflection token mechanics",
	},
	{
		re: regexp.MustCompile(`0x[a-fA-F0-9]{40}`),
		fn: func(addr string) string { return "0x..." + addr[len(addr)-4:] },
	},
	{re: regexp.MustCompile(`10\*\*(\d+)`), repl: "e${1}"},
	{
		re:   regexp.MustCompile(`function \w+\(\) public pure returns \(\w+ memory\) \{[\s\S]*?return \w+;\s*\}`),
		repl: "// Standard accessor",
	},
	{
		re:   regexp.MustCompile(`_redisFeeOnBuy = \d+;[\s\S]*?_taxFeeOnSell = \d+;`),
		repl: "// Tax structure parameters",
	},
}

// EstimateTokens approximates the model token count at four characters per token.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// CountTokens counts cl100k_base tokens in s, falling back to
// EstimateTokens if the encoding cannot be loaded.
func CountTokens(s string) int {
	if s == "" {
		return 0
	}
	enc, err := encoding()
	if err != nil {
		return EstimateTokens(s)
	}
	return len(enc.Encode(s, nil, nil))
}

// Preprocess strips comments and well-known boilerplate from Solidity source,
// then cuts the result proportionally to roughly maxTokens. A non-positive maxTokens
// uses DefaultMaxInputTokens.
func Preprocess(source string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxInputTokens
	}

	src := strings.TrimRight(strings.ReplaceAll(source, "\r", ""), " \t\n")
	src = reBlockComment.ReplaceAllString(src, "")
	src = reSPDX.ReplaceAllString(src, "")
	src = reLineComment.ReplaceAllString(src, "")

	for _, rw := range boilerplate {
		if rw.fn != nil {
			src = rw.re.ReplaceAllStringFunc(src, rw.fn)
			continue
		}
		src = rw.re.ReplaceAllString(src, rw.repl)
	}

	lines := strings.Split(src, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	src = reManyNewlines.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")

	if strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("preprocess: %w", domain.ErrEmptySource)
	}

	if n := CountTokens(src); n > maxTokens {
		src = truncate(src, len(src)*maxTokens/n)
	}
	return src, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
