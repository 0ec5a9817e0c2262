package tsemitter

const clientTemplate = `// {{.Header}}
{{- if .Title}}
// {{.Title}}{{if .Version}} {{.Version}}{{end}}
{{- end}}
{{- range .Description}}
//{{if .}} {{.}}{{end}}
{{- end}}

export const DEFAULT_ENDPOINT = {{.Endpoint}};

{{.Types -}}

export class RPCError extends Error {
  readonly code: number;
  readonly data?: unknown;

  constructor(code: number, message: string, data?: unknown) {
    super(message);
    this.name = "RPCError";
    this.code = code;
    this.data = data;
  }
}
{{range .Errors}}
{{.Doc}}export class {{.Ident}} extends RPCError {
  static readonly CODE = {{.Code}};

  constructor(message: string = {{.Message}}, data?: {{.DataType}}) {
    super({{.Code}}, message, data);
    this.name = "{{.Ident}}";
  }
}
{{end}}
export const ERRORS_BY_CODE: Record<number, new (message?: string, data?: any) => RPCError> = {
{{- range .Errors}}
  [{{.Code}}]: {{.Ident}},
{{- end}}
};

export const METHODS_BY_TAG = {
{{- range .Tags}}
  {{.Key}}: [{{.Methods}}],
{{- end}}
} as const;

export interface {{.ClassName}}Options {
  endpoint?: string;
  headers?: Record<string, string>;
  fetch?: typeof fetch;
}

interface JSONRPCErrorObject {
  code: number;
  message: string;
  data?: unknown;
}

interface JSONRPCResponse {
  jsonrpc: "2.0";
  id: number | string | null;
  result?: unknown;
  error?: JSONRPCErrorObject;
}

function toError(error: JSONRPCErrorObject): RPCError {
  const ctor = ERRORS_BY_CODE[error.code];
  if (ctor) {
    return new ctor(error.message, error.data);
  }
  return new RPCError(error.code, error.message, error.data);
}

function trimArgs(args: unknown[]): unknown[] {
  let end = args.length;
  while (end > 0 && args[end - 1] === undefined) {
    end--;
  }
  return args.slice(0, end);
}

export class {{.ClassName}} {
  private readonly endpoint: string;
  private readonly headers: Record<string, string>;
  private readonly fetchImpl: typeof fetch;
  private nextId = 1;

  constructor(options: {{.ClassName}}Options = {}) {
    this.endpoint = options.endpoint ?? DEFAULT_ENDPOINT;
    this.headers = options.headers ?? {};
    this.fetchImpl = options.fetch ?? globalThis.fetch.bind(globalThis);
  }

  async call<T>(method: string, params?: unknown): Promise<T> {
    const response = await this.send({ jsonrpc: "2.0", id: this.nextId++, method, params });
    const payload = (await response.json()) as JSONRPCResponse;
    if (payload.error) {
      throw toError(payload.error);
    }
    return payload.result as T;
  }

  async notify(method: string, params?: unknown): Promise<void> {
    await this.send({ jsonrpc: "2.0", method, params });
  }

  private async send(body: Record<string, unknown>): Promise<Response> {
    const response = await this.fetchImpl(this.endpoint, {
      method: "POST",
      headers: { "Content-Type": "application/json", ...this.headers },
      body: JSON.stringify(body),
    });
    if (!response.ok) {
      throw new RPCError(-32603, "HTTP " + response.status + ": " + response.statusText);
    }
    return response;
  }
{{- range .Methods}}

{{.Doc}}  async {{.Member}}({{.Signature}}): Promise<{{.Result}}> {
{{- if .Notification}}
    return this.notify({{.Name}}{{.Args}});
{{- else}}
    return this.call<{{.Result}}>({{.Name}}{{.Args}});
{{- end}}
  }
{{- end}}
}
`
