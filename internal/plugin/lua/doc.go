// Package lua loads dashboard plugins written in Lua.
//
// A script registers plugins through the dashboard module:
//
//	dashboard.register{
//	    id = "clock",
//	    requirements = { config = {"clock.zone"}, env = {"CLOCK_TOKEN"} },
//	    slots = {
//	        ["view:header"] = function(ctx)
//	            ctx.set_text("12:00 " .. ctx.config("clock.zone"))
//	            return function() ctx.set_text("") end
//	        end,
//	        ["view:sidebar"] = { mount = render, manage_visibility = false },
//	    },
//	}
//
// Loader runs the script in a sandboxed State and returns the resulting
// plugin.Definitions, ready for plugin.Manager.Register:
//
//	sc, err := lua.NewLoader().LoadFile("plugins/clock.lua")
//	if err != nil {
//	    return err
//	}
//	defer sc.Close()
//	for _, def := range sc.Definitions() {
//	    mgr.Register(ctx, def)
//	}
//
// # Mount Context
//
// A mount function receives a table with slot_id, plugin_id and the
// functions set_text, set_attr, append_html (acting on the container),
// emit(name, detail) (publishing on the event bus) and config(path). A
// function it returns is called when the plugin is disabled.
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load, loadstring and module are removed, require only returns
// already loaded modules, and print writes to the logger. Every call into
// a state is serialized and bounded by an execution timeout.
package lua
