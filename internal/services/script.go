package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ScriptRunner executes a JavaScript for Automation program and returns its standard output.
type ScriptRunner interface {
	Run(ctx context.Context, script string) ([]byte, error)
}

// Osascript runs scripts with the macOS osascript binary.
type Osascript struct {
	Path    string
	Timeout time.Duration
}

var _ ScriptRunner = Osascript{}

func (o Osascript) Run(ctx context.Context, script string) ([]byte, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	path := o.Path
	if path == "" {
		path = "osascript"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-l", "JavaScript", "-e", script)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("osascript: %w", ctx.Err())
	}
	if err != nil {
		return nil, fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// buildScript wraps body in the shared prelude and response envelope. The body sees `args`, `app`,
// the lookup helpers and a `failed` array it may push unresolved ids onto.
func buildScript(body string, args any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return "", fmt.Errorf("failed to encode script arguments: %w", err)
	}
	return fmt.Sprintf(scriptTemplate, bytes.TrimSpace(buf.Bytes()), body), nil
}

const scriptTemplate = `(() => {
	const args = %s;
	const app = Application("Music");
	let isRunning = false;
	try { isRunning = app.running(); } catch (e) {}
	if (!isRunning) return JSON.stringify({offline: true});

	const library = () => app.libraryPlaylists[0];
	const trackByPID = (pid) => {
		const found = library().tracks.whose({persistentID: pid});
		return found.length > 0 ? found[0] : null;
	};
	const playlistByPID = (pid) => {
		const found = app.userPlaylists.whose({persistentID: pid});
		return found.length > 0 ? found[0] : null;
	};
	const epoch = (d) => d ? Math.floor(d.getTime() / 1000) : 0;

	const failed = [];
	const data = (() => {
%s
	})();
	return JSON.stringify({data: data === undefined ? null : data, failed: failed});
})()`

const tracksScript = `
		const since = new Date(args.since * 1000);
		const tracks = library().fileTracks;
		const modified = tracks.modificationDate();
		const out = [];
		for (let i = 0; i < modified.length; i++) {
			if (!args.all && modified[i] && modified[i] < since) continue;
			const t = tracks[i];
			let path = "";
			try { path = t.location().toString(); } catch (e) { continue; }
			out.push({
				pid: t.persistentID(), path: path,
				artist: t.artist(), title: t.name(), album: t.album(), comment: t.comment(),
				duration: t.duration(), size: t.size(), bitRate: t.bitRate(),
				modified: epoch(modified[i]),
				rating: t.ratingKind() === "computed" ? 0 : t.rating(),
				added: epoch(t.dateAdded()), bpm: t.bpm()
			});
		}
		return out;`

const snapshotScript = `
		const tracks = library().fileTracks;
		const pids = tracks.persistentID();
		const ratings = tracks.rating();
		const kinds = tracks.ratingKind();
		const bpms = tracks.bpm();
		return pids.map((pid, i) => ({pid: pid, rating: kinds[i] === "computed" ? 0 : ratings[i], bpm: bpms[i]}));`

const playlistsScript = `
		const out = [];
		app.userPlaylists().forEach((p) => {
			const kind = p.specialKind();
			if (kind !== "none" && kind !== "folder") return;
			const folder = p.class() === "folderPlaylist";
			let parent = "";
			try { parent = p.parent().persistentID(); } catch (e) {}
			out.push({
				pid: p.persistentID(), parent: parent, name: p.name(), folder: folder,
				tracks: folder ? [] : p.tracks.persistentID()
			});
		});
		return out;`

const updateCommentScript = `
		const t = trackByPID(args.pid);
		if (!t) { failed.push(args.pid); return null; }
		t.comment = args.comment;
		return null;`

const batchCommentsScript = `
		args.updates.forEach((u) => {
			try {
				const t = trackByPID(u.persistent_id);
				if (!t) { failed.push(u.persistent_id); return; }
				t.comment = u.comment;
			} catch (e) {
				failed.push(u.persistent_id);
			}
		});
		return null;`

const updateRatingScript = `
		const t = trackByPID(args.pid);
		if (!t) { failed.push(args.pid); return null; }
		t.rating = args.rating;
		return null;`

const updateInfoScript = `
		const t = trackByPID(args.pid);
		if (!t) { failed.push(args.pid); return null; }
		const info = args.info;
		if (info.title !== undefined) t.name = info.title;
		if (info.artist !== undefined) t.artist = info.artist;
		if (info.album !== undefined) t.album = info.album;
		if (info.comment !== undefined) t.comment = info.comment;
		if (info.bpm !== undefined) t.bpm = info.bpm;
		return null;`

const addToPlaylistScript = `
		const t = trackByPID(args.track);
		const p = playlistByPID(args.playlist);
		if (!t) failed.push(args.track);
		if (!p) failed.push(args.playlist);
		if (t && p) app.duplicate(t, {to: p});
		return null;`

const removeFromPlaylistScript = `
		const p = playlistByPID(args.playlist);
		if (!p) { failed.push(args.playlist); return null; }
		p.tracks.whose({persistentID: args.track})().forEach((t) => t.delete());
		return null;`

const reorderPlaylistScript = `
		const p = playlistByPID(args.playlist);
		if (!p) { failed.push(args.playlist); return null; }
		p.tracks().forEach((t) => t.delete());
		args.tracks.forEach((pid) => {
			const t = trackByPID(pid);
			if (t) app.duplicate(t, {to: p}); else failed.push(pid);
		});
		return null;`

const playCountScript = `
		const t = trackByPID(args.pid);
		if (!t) { failed.push(args.pid); return 0; }
		return t.playedCount();`

const setPlayCountScript = `
		const t = trackByPID(args.pid);
		if (!t) { failed.push(args.pid); return null; }
		t.playedCount = args.count;
		return null;`
