// Package git keeps the local working copy of the manifest repository in step with its remote.
//
// A Synchronizer owns one working copy and one tracked branch:
//
//   - Sync fetches the branch and hard-resets the working copy to the fetched tip, discarding any
//     local drift (uncommitted edits, unpushed commits, untracked files).
//   - CommitAndPush stages every change, records one commit with the configured identity and pushes
//     the branch back to the remote.
//
// The auth subpackage resolves transport credentials per remote URL (SSH key, URL credentials or
// none for local remotes).
//
// Failures are reported as types.GitError values wrapped in types.ErrSync or types.ErrPush.
package git
