// Package password hashes and verifies login passwords with Argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verify reads the cost parameters from the stored string, so hashes minted
// under older settings keep verifying after the configuration changes.
// NeedsUpgrade reports when a stored hash is weaker than the current settings.
//
// The package never stores, logs or returns plaintext passwords.
package password
