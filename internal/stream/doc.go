// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Stream License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package stream implementa um stream de bytes legível: pull-based,
// bufferizado e dirigido a eventos, compondo com um ou mais sinks por um
// protocolo de piping com backpressure.
//
// O núcleo é a máquina de estados que medeia entre um produtor assíncrono
// (Source.Pull) e os consumidores — leituras diretas, sinks anexados via
// Pipe, ou listeners legados de data. Um Readable nasce em modo pull (dados
// produzidos só em resposta a Read), entra em flowing quando recebe um Pipe,
// e pode migrar de forma irreversível para o modo legacy de emissão push via
// on("data"), Pause ou Resume. Wrap faz o caminho inverso: adapta um
// push-stream histórico à interface pull.
//
// Todo o estado de um Readable pertence a um eventloop.Loop: um executor
// cooperativo de turno único. Trabalho diferido (emissão de end, primeira
// iteração de flow) roda após o turno corrente, nunca sincronamente.
package stream
