package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guards returning the same value are mergeable:
	//   if a { return err }
	//   if b { return err }
	// => if a || b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// Sentinel errors travel wrapped through dispatch, so == misses them.
	m.Match(`$err == $sentinel`, `$err != $sentinel`).
		Where(m["err"].Type.Is(`error`) && m["sentinel"].Text.Matches(`^(tool|dispatch|dataset)\.Err`)).
		Report(`compare wrapped errors with errors.Is, not ==`)

	// Handlers run under a deadline; a bare sleep ignores cancellation.
	m.Match(`time.Sleep($d)`).
		Report(`prefer a select on time.After and ctx.Done() so waits respect cancellation`)
}
