/*
Exception holds the sentinel errors shared across packages.

Sentinels are returned wrapped with context by github.com/yanun0323/errors.
Match them with errors.Is from that package; the standard library errors.Is
does not unwrap its Error type.
*/
package exception
