// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stream

import (
	"log/slog"

	"github.com/nishisan-dev/n-stream/internal/eventloop"
	"github.com/nishisan-dev/n-stream/internal/events"
)

// mode é a variante de despacho de um Readable. O stream nasce em pull;
// on("data"), Pause, Resume ou um flow que fica sem pipes o movem para
// legacy (irreversível); Wrap cria streams já em wrapped.
type mode int

const (
	modePull mode = iota
	modeLegacy
	modeWrapped
)

// readState concentra o estado do engine de leitura.
type readState struct {
	buffer chunkList
	length int // total de bytes bufferizados — invariante: Σ chunk.Len()

	readSize     int // dica de volume por Pull
	lowWaterMark int // limiar de refill proativo

	flowing    bool // loop de flow pipe-driven ativo
	ended      bool // produtor sinalizou EOF
	endEmitted bool // end terminal já despachado
	reading    bool // Pull pendente

	// sync é o latch que distingue entrega síncrona (deliver rodou antes de
	// Pull retornar) de assíncrona. Uma entrega síncrona não emite readable:
	// o consumidor está dentro de Read e observará os dados diretamente.
	sync bool

	// needReadable registra que um consumidor pediu dados que não pudemos
	// servir; um readable é devido assim que dados chegarem.
	needReadable bool

	decoder *textDecoder
	pipes   []Destination

	// paused é o flag local do modo legacy.
	paused bool
}

// Readable é um stream de bytes pull-based e bufferizado que compõe com
// sinks via piping com backpressure. Todo o estado vive no Loop informado na
// construção; métodos públicos devem ser chamados de dentro desse loop.
type Readable struct {
	*events.Emitter

	loop   *eventloop.Loop
	source Source
	state  readState
	mode   mode
	logger *slog.Logger

	// estado exclusivo do modo wrapped
	old       LegacyStream
	oldPaused bool
}

// New cria um Readable sobre src. src nil instala o produtor default, que
// sinaliza erro no próximo turno — subclasses de uso real sempre fornecem um
// Source.
func New(loop *eventloop.Loop, src Source, opts ...Option) (*Readable, error) {
	r := &Readable{
		Emitter: events.NewEmitter(),
		loop:    loop,
		source:  src,
		logger:  slog.New(slog.DiscardHandler),
		state: readState{
			readSize:     DefaultReadSize,
			lowWaterMark: DefaultLowWaterMark,
		},
	}
	if src == nil {
		r.source = notImplementedSource{loop: loop}
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Loop retorna o loop que possui o estado deste stream.
func (r *Readable) Loop() *eventloop.Loop { return r.loop }

// SetEncoding liga o decoder incremental para o rótulo IANA informado.
// Deve ser chamado antes do primeiro chunk ser bufferizado.
func (r *Readable) SetEncoding(label string) error {
	dec, err := newTextDecoder(label)
	if err != nil {
		return err
	}
	r.state.decoder = dec
	return nil
}

// On registra um listener. Registrar "data" num stream em modo pull e fora
// de flow o converte para o modo legacy de emissão push; durante um flow a
// conversão fica a cargo do próprio loop de flow, quando os pipes sumirem.
func (r *Readable) On(event string, fn events.Handler) *events.Listener {
	l := r.Emitter.On(event, fn)
	if event == "data" && r.mode == modePull && !r.state.flowing {
		r.switchToLegacy()
	}
	return l
}

// Read puxa até n bytes do buffer. n < 0 significa "tudo que houver
// bufferizado". Retorno nil significa "nada disponível agora": aguarde um
// readable.
//
// A ordem dos passos importa. O plano é computado antes do refill para que o
// déficit seja conhecido; o refill é disparado antes do take físico para que
// produtores síncronos satisfaçam uma leitura curta na mesma chamada; depois
// de um refill síncrono o plano é recomputado sobre o buffer aumentado.
func (r *Readable) Read(n int) *Chunk {
	if r.mode == modeWrapped {
		return r.wrappedRead(n)
	}
	return r.engineRead(n)
}

// ReadAll é açúcar para Read sem limite.
func (r *Readable) ReadAll() *Chunk { return r.Read(-1) }

func (r *Readable) engineRead(n int) *Chunk {
	st := &r.state

	avail := st.plan(n)
	if avail == 0 && st.ended {
		r.endReadable()
		return nil
	}

	doRead := st.needReadable || st.length-avail <= st.lowWaterMark
	if st.ended || st.reading {
		doRead = false
	}

	if doRead {
		st.reading = true
		st.sync = true
		r.source.Pull(st.readSize, r.deliver)
		st.sync = false

		// Entrega síncrona concluída: o buffer pode ter crescido (ou o
		// produtor pode ter sinalizado EOF); recomputa sobre o novo estado.
		if !st.reading {
			avail = st.plan(n)
		}
	}

	var c *Chunk
	if avail > 0 {
		c = st.buffer.take(avail, st.length, st.decoder != nil)
	}

	returned := 0
	if c == nil || c.Len() == 0 {
		st.needReadable = true
		c = nil
	} else {
		returned = c.Len()
	}
	st.length -= returned

	return c
}

// plan decide quantos bytes uma leitura pode retornar agora. Pedidos maiores
// que o buffer de um stream não-encerrado armam needReadable e retornam 0;
// com EOF sinalizado o restante do buffer é entregue.
func (st *readState) plan(n int) int {
	if st.length == 0 && st.ended {
		return 0
	}
	if n < 0 {
		return st.length
	}
	if n == 0 {
		return 0
	}
	if n > st.length {
		if !st.ended {
			st.needReadable = true
			return 0
		}
		return st.length
	}
	return n
}

// deliver é o callback entregue ao Source (§produtor). Roda exatamente uma
// vez por Pull, síncrona ou assincronamente, sempre no loop do stream.
func (r *Readable) deliver(err error, c *Chunk) {
	st := &r.state
	wasSync := st.sync
	st.reading = false

	if err != nil {
		r.logger.Debug("source delivered error", "error", err)
		r.Emit("error", err)
		return
	}

	if c == nil || c.Len() == 0 {
		st.ended = true
		if !wasSync {
			if st.length > 0 {
				r.Emit("readable", nil)
			} else {
				r.endReadable()
			}
		}
		return
	}

	if st.decoder != nil {
		decoded, derr := st.decoder.Write(c.Bytes())
		if derr != nil {
			r.Emit("error", derr)
			return
		}
		// Fragmento vazio: a sequência multi-byte ainda está incompleta;
		// nada a bufferizar neste turno.
		if decoded == "" {
			c = nil
		} else {
			c = NewTextChunk(decoded)
		}
	}

	if c != nil {
		st.buffer.push(c)
		st.length += c.Len()
	}

	if st.length <= st.lowWaterMark && !st.ended {
		// Refill em cauda: continua puxando até cruzar a marca d'água,
		// mantendo o gate de um único Pull pendente.
		st.reading = true
		r.source.Pull(st.readSize, r.deliver)
		return
	}

	if st.needReadable && !wasSync {
		st.needReadable = false
		r.Emit("readable", nil)
	}
}

// endReadable é o finalizador de fim de stream. Idempotente; o end terminal
// é sempre um evento de fronteira de turno, nunca síncrono.
func (r *Readable) endReadable() {
	st := &r.state
	if st.endEmitted {
		return
	}
	st.ended = true
	st.endEmitted = true
	r.loop.Defer(func() {
		r.Emit("end", nil)
	})
}

// Length retorna o total de bytes bufferizados no momento.
func (r *Readable) Length() int { return r.state.length }
